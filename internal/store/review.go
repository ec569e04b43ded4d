package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/sse"
)

// ErrReviewNotFound is returned when a review cannot be found.
var ErrReviewNotFound = errors.New("review not found")

// storedReview mirrors domain.Review on disk but keeps Overall as a
// pointer. Documents written by early clients may lack a precomputed
// overall; a nil pointer tells us to recompute from the components
// instead of treating the score as zero.
type storedReview struct {
	VenueID    string                  `json:"venue_id"`
	Tag        string                  `json:"tag"`
	AuthorID   string                  `json:"author_id"`
	AuthorName string                  `json:"author_name"`
	Components domain.RatingComponents `json:"components"`
	Overall    *float64                `json:"overall,omitempty"`
	Comment    string                  `json:"comment,omitempty"`
	LikeCount  int                     `json:"like_count"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// overall returns the stored overall, falling back to recomputing from
// the components for legacy documents.
func (r *storedReview) overall() float64 {
	if r.Overall != nil {
		return *r.Overall
	}
	return r.Components.Overall()
}

func (r *storedReview) toDomain() *domain.Review {
	return &domain.Review{
		VenueID:    r.VenueID,
		Tag:        r.Tag,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Components: r.Components,
		Overall:    r.overall(),
		Comment:    r.Comment,
		LikeCount:  r.LikeCount,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toStored(review *domain.Review) *storedReview {
	overall := review.Overall
	return &storedReview{
		VenueID:    review.VenueID,
		Tag:        review.Tag,
		AuthorID:   review.AuthorID,
		AuthorName: review.AuthorName,
		Components: review.Components,
		Overall:    &overall,
		Comment:    review.Comment,
		LikeCount:  review.LikeCount,
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  review.UpdatedAt,
	}
}

// getSummaryTxn reads the rating summary for a (venue, tag) inside a
// transaction, returning a zeroed summary when none exists yet.
func getSummaryTxn(txn *badger.Txn, venueID, tag string) (*domain.RatingSummary, error) {
	summary := &domain.RatingSummary{VenueID: venueID, Tag: tag}
	err := getTxn(txn, summaryKey(venueID, tag), summary)
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// UpsertReview creates or replaces the caller's review for a (venue,
// tag) and folds the score change into the rating summary, all in one
// transaction. On create the summary count grows by one and the new
// overall joins the sum; on edit the count is unchanged and the sum
// moves by the difference between new and old overall, with like count
// and creation time carried over from the prior document. Returns the
// saved review and the updated summary.
func (s *Store) UpsertReview(ctx context.Context, review *domain.Review) (*domain.Review, *domain.RatingSummary, error) {
	review.Overall = review.Components.Overall()

	key := reviewKey(review.VenueID, review.Tag, review.AuthorID)
	var saved *domain.Review
	var summary *domain.RatingSummary

	err := s.RunTransaction(ctx, func(txn *badger.Txn) error {
		now := time.Now()

		var prior storedReview
		isNew := false
		if err := getTxn(txn, key, &prior); err != nil {
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("get review: %w", err)
			}
			isNew = true
		}

		next := toStored(review)
		next.UpdatedAt = now
		if isNew {
			next.LikeCount = 0
			next.CreatedAt = now
		} else {
			next.LikeCount = prior.LikeCount
			next.CreatedAt = prior.CreatedAt
		}

		if err := setTxn(txn, key, next); err != nil {
			return err
		}

		sum, err := getSummaryTxn(txn, review.VenueID, review.Tag)
		if err != nil {
			return err
		}

		if isNew {
			sum.Count++
			sum.Sum += next.overall()
		} else {
			sum.Sum += next.overall() - prior.overall()
		}
		sum.UpdatedAt = now
		sum.Recompute()

		if err := setTxn(txn, summaryKey(review.VenueID, review.Tag), sum); err != nil {
			return err
		}

		saved = next.toDomain()
		summary = sum
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.emit(sse.NewReviewSavedEvent(saved))
	s.emit(sse.NewSummaryUpdatedEvent(summary))

	return saved, summary, nil
}

// DeleteReview removes a review, all of its like markers, and its
// contribution to the rating summary in one transaction. Deleting a
// review that does not exist is a no-op and reports deleted=false.
// When the last review for a (venue, tag) goes, the summary sum is
// pinned to exactly zero so float residue cannot accumulate.
func (s *Store) DeleteReview(ctx context.Context, venueID, tag, authorID string) (bool, *domain.RatingSummary, error) {
	key := reviewKey(venueID, tag, authorID)
	deleted := false
	var summary *domain.RatingSummary

	err := s.RunTransaction(ctx, func(txn *badger.Txn) error {
		deleted = false
		summary = nil

		var prior storedReview
		if err := getTxn(txn, key, &prior); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Nothing to delete
			}
			return fmt.Errorf("get review: %w", err)
		}

		if err := txn.Delete([]byte(key)); err != nil {
			return err
		}

		// Orphaned like markers would silently break the like-count
		// invariant for any future review by the same author, so they
		// go in the same transaction.
		likeKeys, err := collectKeys(txn, likeReviewPrefix(venueID, tag, authorID))
		if err != nil {
			return fmt.Errorf("collect like markers: %w", err)
		}
		for _, lk := range likeKeys {
			if err := txn.Delete(lk); err != nil {
				return err
			}
		}

		sum, err := getSummaryTxn(txn, venueID, tag)
		if err != nil {
			return err
		}

		sum.Count--
		sum.Sum -= prior.overall()
		sum.UpdatedAt = time.Now()
		sum.Recompute()

		if err := setTxn(txn, summaryKey(venueID, tag), sum); err != nil {
			return err
		}

		deleted = true
		summary = sum
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	if deleted {
		s.emit(sse.NewReviewDeletedEvent(venueID, tag, authorID, time.Now()))
		s.emit(sse.NewSummaryUpdatedEvent(summary))
	}

	return deleted, summary, nil
}

// collectKeys gathers all keys under a prefix. Used to delete while a
// transaction iterator is still open.
func collectKeys(txn *badger.Txn, prefix string) ([][]byte, error) {
	p := []byte(prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

// GetReview retrieves one review by its (venue, tag, author) identity.
func (s *Store) GetReview(_ context.Context, venueID, tag, authorID string) (*domain.Review, error) {
	key := buildKey(reviewPrefix, venueID+":"+tag+":"+authorID)
	defer releaseKey(key)

	var stored storedReview
	if err := s.get(key, &stored); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return stored.toDomain(), nil
}

// ListReviews returns one page of reviews for a (venue, tag), ordered
// by the requested sort. Reviews for a single tag are bounded in
// practice, so we load the set, sort in memory, and cursor by offset.
func (s *Store) ListReviews(ctx context.Context, venueID, tag string, sortBy domain.ReviewSort, params PaginationParams) (*PaginatedResult[*domain.Review], error) {
	params.Validate()

	reviews, err := s.reviewsForTag(ctx, venueID, tag)
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case domain.ReviewSortLikes:
		sort.SliceStable(reviews, func(i, j int) bool {
			if reviews[i].LikeCount != reviews[j].LikeCount {
				return reviews[i].LikeCount > reviews[j].LikeCount
			}
			return reviews[i].UpdatedAt.After(reviews[j].UpdatedAt)
		})
	default: // domain.ReviewSortLatest
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].UpdatedAt.After(reviews[j].UpdatedAt)
		})
	}

	offset, err := DecodeOffsetCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if offset > len(reviews) {
		offset = len(reviews)
	}

	end := offset + params.Limit
	if end > len(reviews) {
		end = len(reviews)
	}

	result := &PaginatedResult[*domain.Review]{
		Items:   reviews[offset:end],
		HasMore: end < len(reviews),
		Total:   len(reviews),
	}
	if result.HasMore {
		result.NextCursor = EncodeOffsetCursor(end)
	}

	return result, nil
}

// reviewsForTag loads every review for a (venue, tag) pair.
func (s *Store) reviewsForTag(_ context.Context, venueID, tag string) ([]*domain.Review, error) {
	prefix := []byte(reviewTagPrefix(venueID, tag))
	var reviews []*domain.Review

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var stored storedReview
				if unmarshalErr := json.Unmarshal(val, &stored); unmarshalErr != nil {
					// Skip malformed reviews
					return nil //nolint:nilerr // intentionally skip malformed entries
				}
				reviews = append(reviews, stored.toDomain())
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return reviews, nil
}

// GetSummary retrieves the rating summary for a (venue, tag). A pair
// with no reviews yet reads as an all-zero summary, not an error.
func (s *Store) GetSummary(_ context.Context, venueID, tag string) (*domain.RatingSummary, error) {
	key := buildKey(summaryPrefix, venueID+":"+tag)
	defer releaseKey(key)

	summary := domain.RatingSummary{VenueID: venueID, Tag: tag}
	if err := s.get(key, &summary); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &summary, nil
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}

	return &summary, nil
}
