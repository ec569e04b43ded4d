package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// ReviewService handles review submission, listing, and deletion.
// The overall score and the per-(venue, tag) rating summary are
// maintained by the store; this layer validates input and shapes
// responses for the API.
type ReviewService struct {
	store    *store.Store
	inflight *inflightGuard
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(store *store.Store, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		inflight: newInflightGuard(),
		logger:   logger,
	}
}

// UpsertReviewRequest contains a review submission. An existing review
// by the same author for the same (venue, tag) is replaced.
type UpsertReviewRequest struct {
	VenueID string  `json:"venue_id" validate:"required"`
	Tag     string  `json:"tag" validate:"required"`
	Screen  float64 `json:"screen" validate:"gte=0,lte=5,ratingstep"`
	Picture float64 `json:"picture" validate:"gte=0,lte=5,ratingstep"`
	Sound   float64 `json:"sound" validate:"gte=0,lte=5,ratingstep"`
	Seat    float64 `json:"seat" validate:"gte=0,lte=5,ratingstep"`
	Comment string  `json:"comment" validate:"max=2000"`
}

// ReviewResponse pairs a review with viewer-specific state and the
// summary as of the operation.
type ReviewResponse struct {
	Review    *domain.Review        `json:"review"`
	Summary   *domain.RatingSummary `json:"summary,omitempty"`
	LikedByMe bool                  `json:"liked_by_me"`
}

// ReviewListItem is one review in a listing with viewer state.
type ReviewListItem struct {
	Review    *domain.Review `json:"review"`
	LikedByMe bool           `json:"liked_by_me"`
}

// ReviewListResponse is one page of reviews plus the pair's summary.
type ReviewListResponse struct {
	Items      []ReviewListItem      `json:"items"`
	Summary    *domain.RatingSummary `json:"summary"`
	Total      int                   `json:"total"`
	HasMore    bool                  `json:"has_more"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// UpsertReview validates and writes a review for the given author.
// The venue must exist and offer the premium format being reviewed.
func (s *ReviewService) UpsertReview(ctx context.Context, author *domain.User, req UpsertReviewRequest) (*ReviewResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	venue, err := s.store.GetVenue(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, store.ErrVenueNotFound) {
			return nil, domainerrors.NotFound("venue not found")
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	if !venue.HasTag(req.Tag) {
		return nil, domainerrors.Validationf("venue does not offer %s", req.Tag)
	}

	review := &domain.Review{
		VenueID:    req.VenueID,
		Tag:        req.Tag,
		AuthorID:   author.ID,
		AuthorName: author.DisplayName,
		Components: domain.RatingComponents{
			Screen:  req.Screen,
			Picture: req.Picture,
			Sound:   req.Sound,
			Seat:    req.Seat,
		},
		Comment: strings.TrimSpace(req.Comment),
	}

	// A save arriving while one is already running for the same
	// (venue, tag, author) would double-count the summary delta if both
	// transactions committed in sequence. The duplicate is answered
	// with current state instead, matching the client's saving flag.
	key := reviewInflightKey(req.VenueID, req.Tag, author.ID)
	if !s.inflight.tryAcquire(key) {
		return s.upsertState(ctx, review)
	}
	defer s.inflight.release(key)

	saved, summary, err := s.store.UpsertReview(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Review saved",
			"venue_id", req.VenueID,
			"tag", req.Tag,
			"author_id", author.ID,
			"overall", saved.Overall,
		)
	}

	return &ReviewResponse{
		Review:  saved,
		Summary: summary,
	}, nil
}

// upsertState answers a duplicate save with the state the first
// request produces: the stored review once it has committed, or the
// submitted payload echoed back while it has not.
func (s *ReviewService) upsertState(ctx context.Context, pending *domain.Review) (*ReviewResponse, error) {
	review, err := s.store.GetReview(ctx, pending.VenueID, pending.Tag, pending.AuthorID)
	if errors.Is(err, store.ErrReviewNotFound) {
		pending.Overall = pending.Components.Overall()
		review = pending
	} else if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	summary, err := s.store.GetSummary(ctx, pending.VenueID, pending.Tag)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	return &ReviewResponse{Review: review, Summary: summary}, nil
}

// DeleteReview removes the author's review for a (venue, tag).
// Deleting a review that does not exist is a no-op.
func (s *ReviewService) DeleteReview(ctx context.Context, venueID, tag, authorID string) (*domain.RatingSummary, error) {
	key := reviewInflightKey(venueID, tag, authorID)
	if !s.inflight.tryAcquire(key) {
		return s.GetSummary(ctx, venueID, tag)
	}
	defer s.inflight.release(key)

	deleted, summary, err := s.store.DeleteReview(ctx, venueID, tag, authorID)
	if err != nil {
		return nil, fmt.Errorf("delete review: %w", err)
	}
	if summary == nil {
		// No review existed, so the store touched nothing. The contract
		// still promises the summary as it stands.
		summary, err = s.store.GetSummary(ctx, venueID, tag)
		if err != nil {
			return nil, fmt.Errorf("get summary: %w", err)
		}
	}

	if deleted && s.logger != nil {
		s.logger.Info("Review deleted",
			"venue_id", venueID,
			"tag", tag,
			"author_id", authorID,
		)
	}

	return summary, nil
}

// GetReview returns a single review with viewer state.
func (s *ReviewService) GetReview(ctx context.Context, venueID, tag, authorID, viewerID string) (*ReviewResponse, error) {
	review, err := s.store.GetReview(ctx, venueID, tag, authorID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	likedByMe := false
	if viewerID != "" {
		likedByMe, err = s.store.HasLiked(ctx, venueID, tag, authorID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("check like: %w", err)
		}
	}

	return &ReviewResponse{
		Review:    review,
		LikedByMe: likedByMe,
	}, nil
}

// MyReview returns the viewer's own review for a (venue, tag), or a
// NotFound error when they have not reviewed it.
func (s *ReviewService) MyReview(ctx context.Context, venueID, tag, viewerID string) (*ReviewResponse, error) {
	return s.GetReview(ctx, venueID, tag, viewerID, viewerID)
}

// ListReviews returns one page of reviews for a (venue, tag) with the
// current summary. sortBy accepts "latest" (default) and "likes".
func (s *ReviewService) ListReviews(
	ctx context.Context,
	venueID, tag, viewerID string,
	sortBy string,
	params store.PaginationParams,
) (*ReviewListResponse, error) {
	sort, err := parseReviewSort(sortBy)
	if err != nil {
		return nil, err
	}

	page, err := s.store.ListReviews(ctx, venueID, tag, sort, params)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	summary, err := s.store.GetSummary(ctx, venueID, tag)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	items := make([]ReviewListItem, 0, len(page.Items))
	for _, review := range page.Items {
		item := ReviewListItem{Review: review}
		if viewerID != "" {
			item.LikedByMe, err = s.store.HasLiked(ctx, venueID, tag, review.AuthorID, viewerID)
			if err != nil {
				return nil, fmt.Errorf("check like: %w", err)
			}
		}
		items = append(items, item)
	}

	return &ReviewListResponse{
		Items:      items,
		Summary:    summary,
		Total:      page.Total,
		HasMore:    page.HasMore,
		NextCursor: page.NextCursor,
	}, nil
}

// GetSummary returns the rating summary for a (venue, tag). Pairs with
// no reviews yield a zero summary, not an error.
func (s *ReviewService) GetSummary(ctx context.Context, venueID, tag string) (*domain.RatingSummary, error) {
	summary, err := s.store.GetSummary(ctx, venueID, tag)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// reviewInflightKey guards saves and deletes for one (venue, tag,
// author) under a single key so they cannot interleave either.
func reviewInflightKey(venueID, tag, authorID string) string {
	return "review:" + venueID + ":" + tag + ":" + authorID
}

// parseReviewSort maps the API sort parameter to a domain sort.
func parseReviewSort(sortBy string) (domain.ReviewSort, error) {
	switch sortBy {
	case "", string(domain.ReviewSortLatest):
		return domain.ReviewSortLatest, nil
	case string(domain.ReviewSortLikes):
		return domain.ReviewSortLikes, nil
	default:
		return "", domainerrors.Validationf("unknown sort %q, expected latest or likes", sortBy)
	}
}
