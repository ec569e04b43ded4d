package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// SocialService handles like toggles on reviews and venue favorites.
type SocialService struct {
	store    *store.Store
	inflight *inflightGuard
	logger   *slog.Logger
}

// NewSocialService creates a new social service.
func NewSocialService(store *store.Store, logger *slog.Logger) *SocialService {
	return &SocialService{
		store:    store,
		inflight: newInflightGuard(),
		logger:   logger,
	}
}

// LikeResponse contains the review after a like toggle.
type LikeResponse struct {
	Review  *domain.Review `json:"review"`
	LikedBy bool           `json:"liked_by_me"`
}

// FavoriteResponse reports the favorite state after a toggle.
type FavoriteResponse struct {
	VenueID   string `json:"venue_id"`
	Favorited bool   `json:"favorited"`
}

// ToggleLike flips the caller's like on a review. A duplicate request
// arriving while the first is still running does not toggle again; it
// answers with the state the first request produced.
func (s *SocialService) ToggleLike(ctx context.Context, venueID, tag, authorID, likerID string) (*LikeResponse, error) {
	key := "like:" + venueID + ":" + tag + ":" + authorID + ":" + likerID
	if !s.inflight.tryAcquire(key) {
		return s.likeState(ctx, venueID, tag, authorID, likerID)
	}
	defer s.inflight.release(key)

	review, liked, err := s.store.ToggleLike(ctx, venueID, tag, authorID, likerID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("toggle like: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Like toggled",
			"venue_id", venueID,
			"tag", tag,
			"author_id", authorID,
			"liker_id", likerID,
			"liked", liked,
		)
	}

	return &LikeResponse{Review: review, LikedBy: liked}, nil
}

// likeState answers a duplicate like request with the current state.
func (s *SocialService) likeState(ctx context.Context, venueID, tag, authorID, likerID string) (*LikeResponse, error) {
	review, err := s.store.GetReview(ctx, venueID, tag, authorID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	liked, err := s.store.HasLiked(ctx, venueID, tag, authorID, likerID)
	if err != nil {
		return nil, fmt.Errorf("check like: %w", err)
	}

	return &LikeResponse{Review: review, LikedBy: liked}, nil
}

// ToggleFavorite flips a venue on or off the user's favorites list.
// Duplicate in-flight requests are answered with current state.
func (s *SocialService) ToggleFavorite(ctx context.Context, userID, venueID string) (*FavoriteResponse, error) {
	// The venue must exist; favorites of ghost venues would be
	// silently dropped at listing time anyway.
	if _, err := s.store.GetVenue(ctx, venueID); err != nil {
		if errors.Is(err, store.ErrVenueNotFound) {
			return nil, domainerrors.NotFound("venue not found")
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}

	key := "fav:" + userID + ":" + venueID
	if !s.inflight.tryAcquire(key) {
		favorited, err := s.store.IsFavorite(ctx, userID, venueID)
		if err != nil {
			return nil, fmt.Errorf("check favorite: %w", err)
		}
		return &FavoriteResponse{VenueID: venueID, Favorited: favorited}, nil
	}
	defer s.inflight.release(key)

	favorited, err := s.store.ToggleFavorite(ctx, userID, venueID)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Favorite toggled",
			"user_id", userID,
			"venue_id", venueID,
			"favorited", favorited,
		)
	}

	return &FavoriteResponse{VenueID: venueID, Favorited: favorited}, nil
}

// ListFavorites returns the user's favorite venues. Venues removed from
// the catalog since they were favorited are skipped.
func (s *SocialService) ListFavorites(ctx context.Context, userID string) ([]*domain.Venue, error) {
	venues, err := s.store.ListFavoriteVenues(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return venues, nil
}

// IsFavorite reports whether the user has favorited the venue.
func (s *SocialService) IsFavorite(ctx context.Context, userID, venueID string) (bool, error) {
	favorited, err := s.store.IsFavorite(ctx, userID, venueID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return favorited, nil
}
