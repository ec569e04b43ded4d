package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/marqueeapp/marquee-server/internal/service"
)

func (s *Server) registerSocialRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "toggleLike",
		Method:      http.MethodPost,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/reviews/{authorID}/like",
		Summary:     "Toggle like",
		Description: "Flips the caller's like on a review. A duplicate in-flight request answers with the current state instead of toggling twice.",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleLike)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/venues/{venueID}/favorite",
		Summary:     "Toggle favorite",
		Description: "Flips the caller's favorite on a venue",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFavorite)
}

// === DTOs ===

// ToggleLikeInput identifies the review to like or unlike.
type ToggleLikeInput struct {
	VenueID  string `path:"venueID" doc:"Venue ID"`
	Tag      string `path:"tag" doc:"Premium format"`
	AuthorID string `path:"authorID" doc:"Review author's user ID"`
}

// LikeOutput wraps the like toggle result for Huma.
type LikeOutput struct {
	Body service.LikeResponse
}

// ToggleFavoriteInput identifies the venue to favorite or unfavorite.
type ToggleFavoriteInput struct {
	VenueID string `path:"venueID" doc:"Venue ID"`
}

// FavoriteOutput wraps the favorite toggle result for Huma.
type FavoriteOutput struct {
	Body service.FavoriteResponse
}

// === Handlers ===

func (s *Server) handleToggleLike(ctx context.Context, input *ToggleLikeInput) (*LikeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkWriteRate(userID); err != nil {
		return nil, err
	}

	resp, err := s.services.Social.ToggleLike(ctx, input.VenueID, input.Tag, input.AuthorID, userID)
	if err != nil {
		return nil, err
	}

	return &LikeOutput{Body: *resp}, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *ToggleFavoriteInput) (*FavoriteOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkWriteRate(userID); err != nil {
		return nil, err
	}

	resp, err := s.services.Social.ToggleFavorite(ctx, userID, input.VenueID)
	if err != nil {
		return nil, err
	}

	return &FavoriteOutput{Body: *resp}, nil
}
