package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/identity"
	"github.com/marqueeapp/marquee-server/internal/normalize"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// UserService handles profile reads and updates. Email and nickname are
// immutable after signup; only the display casing of the name can change.
type UserService struct {
	store    *store.Store
	identity identity.Provider
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store *store.Store, identityProvider identity.Provider, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		identity: identityProvider,
		logger:   logger,
	}
}

// GetUser returns a user profile by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateDisplayNameRequest changes how the nickname is displayed.
type UpdateDisplayNameRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=40"`
}

// UpdateDisplayName changes the display name on the user document and
// mirrors it to the credential record. The nickname key is derived from
// the original nickname at signup and never changes, so the new display
// name must fold to the same key.
func (s *UserService) UpdateDisplayName(ctx context.Context, userID string, req UpdateDisplayNameRequest) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if normalize.NicknameKey(req.DisplayName) != user.NicknameKey {
		return nil, domainerrors.Validation("display name must match the registered nickname")
	}

	user.DisplayName = strings.TrimSpace(req.DisplayName)
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// Credential copy is cosmetic; failure is not worth failing the call.
	if err := s.identity.UpdateDisplayName(ctx, userID, user.DisplayName); err != nil && s.logger != nil {
		s.logger.Warn("failed to sync credential display name",
			"user_id", userID,
			"error", err,
		)
	}

	return user, nil
}
