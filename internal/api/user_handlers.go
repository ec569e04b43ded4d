package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateDisplayName",
		Method:      http.MethodPatch,
		Path:        "/api/v1/me/display-name",
		Summary:     "Update display name",
		Description: "Changes the casing or width of the display name. The underlying nickname reservation never changes.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateDisplayName)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/favorites",
		Summary:     "List favorite venues",
		Description: "Returns the authenticated user's favorite venues",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavorites)
}

// === DTOs ===

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// UpdateDisplayNameInput wraps the display name change for Huma.
type UpdateDisplayNameInput struct {
	Body struct {
		DisplayName string `json:"display_name" validate:"required,min=2,max=40" doc:"New display name, must fold to the registered nickname"`
	}
}

// FavoritesResponse contains the user's favorite venues.
type FavoritesResponse struct {
	Venues []*domain.Venue `json:"venues" doc:"Favorite venues"`
	Total  int             `json:"total" doc:"Number of favorites"`
}

// FavoritesOutput wraps the favorites response for Huma.
type FavoritesOutput struct {
	Body FavoritesResponse
}

// === Handlers ===

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleUpdateDisplayName(ctx context.Context, input *UpdateDisplayNameInput) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.UpdateDisplayName(ctx, userID, service.UpdateDisplayNameRequest{
		DisplayName: input.Body.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleListFavorites(ctx context.Context, _ *struct{}) (*FavoritesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	venues, err := s.services.Social.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &FavoritesOutput{
		Body: FavoritesResponse{
			Venues: venues,
			Total:  len(venues),
		},
	}, nil
}
