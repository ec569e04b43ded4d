package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/service"
	"github.com/marqueeapp/marquee-server/internal/store"
)

const (
	// defaultReviewPageSize matches what the mobile client renders per fetch.
	defaultReviewPageSize = 4
	// maxReviewPageSize caps a single listing fetch.
	maxReviewPageSize = 50
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/reviews",
		Summary:     "List reviews",
		Description: "Returns one page of reviews for a venue's premium format with the current rating summary",
		Tags:        []string{"Reviews"},
	}, s.handleListReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "getMyReview",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/reviews/me",
		Summary:     "My review",
		Description: "Returns the caller's own review for a venue's premium format",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMyReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveMyReview",
		Method:      http.MethodPut,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/reviews/me",
		Summary:     "Save review",
		Description: "Creates or replaces the caller's review. The rating summary updates in the same transaction.",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveMyReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteMyReview",
		Method:      http.MethodDelete,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/reviews/me",
		Summary:     "Delete review",
		Description: "Deletes the caller's review if it exists. Deleting an absent review is a no-op.",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteMyReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/{venueID}/tags/{tag}/summary",
		Summary:     "Rating summary",
		Description: "Returns the rating summary for a venue's premium format. Unreviewed pairs yield a zero summary.",
		Tags:        []string{"Reviews"},
	}, s.handleGetSummary)
}

// === DTOs ===

// ListReviewsInput selects a review page.
type ListReviewsInput struct {
	VenueID string `path:"venueID" doc:"Venue ID"`
	Tag     string `path:"tag" doc:"Premium format"`
	Sort    string `query:"sort" enum:"latest,likes" default:"latest" doc:"Sort order"`
	Limit   int    `query:"limit" doc:"Reviews per page (default 4, max 50)"`
	Cursor  string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

// ReviewListOutput wraps a review page for Huma.
type ReviewListOutput struct {
	Body service.ReviewListResponse
}

// ReviewPathInput identifies a (venue, tag) pair.
type ReviewPathInput struct {
	VenueID string `path:"venueID" doc:"Venue ID"`
	Tag     string `path:"tag" doc:"Premium format"`
}

// ReviewOutput wraps a single review with viewer state for Huma.
type ReviewOutput struct {
	Body service.ReviewResponse
}

// SaveReviewRequest is the request body for creating or editing a review.
type SaveReviewRequest struct {
	Screen  float64 `json:"screen" validate:"gte=0,lte=5" doc:"Screen score, 0-5 in half steps"`
	Picture float64 `json:"picture" validate:"gte=0,lte=5" doc:"Picture score, 0-5 in half steps"`
	Sound   float64 `json:"sound" validate:"gte=0,lte=5" doc:"Sound score, 0-5 in half steps"`
	Seat    float64 `json:"seat" validate:"gte=0,lte=5" doc:"Seat score, 0-5 in half steps"`
	Comment string  `json:"comment,omitempty" validate:"max=2000" doc:"Optional comment"`
}

// SaveReviewInput wraps the save request for Huma.
type SaveReviewInput struct {
	VenueID string `path:"venueID" doc:"Venue ID"`
	Tag     string `path:"tag" doc:"Premium format"`
	Body    SaveReviewRequest
}

// DeleteReviewResponse carries the summary after a delete.
type DeleteReviewResponse struct {
	Summary *domain.RatingSummary `json:"summary" doc:"Rating summary after the delete"`
}

// DeleteReviewOutput wraps the delete response for Huma.
type DeleteReviewOutput struct {
	Body DeleteReviewResponse
}

// SummaryOutput wraps a rating summary for Huma.
type SummaryOutput struct {
	Body domain.RatingSummary
}

// === Handlers ===

func (s *Server) handleListReviews(ctx context.Context, input *ListReviewsInput) (*ReviewListOutput, error) {
	// Anonymous listing is allowed; likedByMe stays false without a viewer.
	viewerID, _ := GetUserID(ctx)

	limit := input.Limit
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	if limit > maxReviewPageSize {
		limit = maxReviewPageSize
	}

	page, err := s.services.Review.ListReviews(ctx, input.VenueID, input.Tag, viewerID, input.Sort, store.PaginationParams{
		Limit:  limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}

	return &ReviewListOutput{Body: *page}, nil
}

func (s *Server) handleGetMyReview(ctx context.Context, input *ReviewPathInput) (*ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.MyReview(ctx, input.VenueID, input.Tag, userID)
	if err != nil {
		return nil, err
	}

	return &ReviewOutput{Body: *review}, nil
}

func (s *Server) handleSaveMyReview(ctx context.Context, input *SaveReviewInput) (*ReviewOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkWriteRate(user.ID); err != nil {
		return nil, err
	}

	review, err := s.services.Review.UpsertReview(ctx, user, service.UpsertReviewRequest{
		VenueID: input.VenueID,
		Tag:     input.Tag,
		Screen:  input.Body.Screen,
		Picture: input.Body.Picture,
		Sound:   input.Body.Sound,
		Seat:    input.Body.Seat,
		Comment: input.Body.Comment,
	})
	if err != nil {
		return nil, err
	}

	return &ReviewOutput{Body: *review}, nil
}

func (s *Server) handleDeleteMyReview(ctx context.Context, input *ReviewPathInput) (*DeleteReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkWriteRate(userID); err != nil {
		return nil, err
	}

	summary, err := s.services.Review.DeleteReview(ctx, input.VenueID, input.Tag, userID)
	if err != nil {
		return nil, err
	}

	return &DeleteReviewOutput{Body: DeleteReviewResponse{Summary: summary}}, nil
}

func (s *Server) handleGetSummary(ctx context.Context, input *ReviewPathInput) (*SummaryOutput, error) {
	summary, err := s.services.Review.GetSummary(ctx, input.VenueID, input.Tag)
	if err != nil {
		return nil, err
	}

	return &SummaryOutput{Body: *summary}, nil
}

// checkWriteRate throttles review/like/favorite writes per user.
func (s *Server) checkWriteRate(userID string) error {
	if !s.writeRateLimiter.Allow(userID) {
		s.logger.Warn("Write rate limit exceeded", "user_id", userID)
		return domainerrors.RateLimited("too many writes, slow down")
	}
	return nil
}
