package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/sse"
)

// ToggleLike flips the caller's like on a review. One transaction reads
// the marker and the review, then either deletes the marker and drops
// the count or creates the marker and bumps it, so the count always
// equals the number of markers. Liking a review that does not exist
// fails with ErrReviewNotFound. Returns the updated review and whether
// the caller now likes it.
func (s *Store) ToggleLike(ctx context.Context, venueID, tag, authorID, likerID string) (*domain.Review, bool, error) {
	rKey := reviewKey(venueID, tag, authorID)
	lKey := likeKey(venueID, tag, authorID, likerID)

	var updated *domain.Review
	liked := false

	err := s.RunTransaction(ctx, func(txn *badger.Txn) error {
		var review storedReview
		if err := getTxn(txn, rKey, &review); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("get review: %w", err)
		}

		hasMarker, err := existsTxn(txn, lKey)
		if err != nil {
			return fmt.Errorf("check like marker: %w", err)
		}

		if hasMarker {
			if err := txn.Delete([]byte(lKey)); err != nil {
				return err
			}
			review.LikeCount--
			if review.LikeCount < 0 {
				review.LikeCount = 0
			}
			liked = false
		} else {
			marker := domain.LikeMarker{
				VenueID:   venueID,
				Tag:       tag,
				AuthorID:  authorID,
				LikerID:   likerID,
				CreatedAt: time.Now(),
			}
			if err := setTxn(txn, lKey, marker); err != nil {
				return err
			}
			review.LikeCount++
			liked = true
		}

		if err := setTxn(txn, rKey, &review); err != nil {
			return err
		}

		updated = review.toDomain()
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.emit(sse.NewReviewLikedEvent(updated))

	return updated, liked, nil
}

// HasLiked reports whether a user has a like marker on a review.
func (s *Store) HasLiked(_ context.Context, venueID, tag, authorID, likerID string) (bool, error) {
	key := buildKey(likePrefix, venueID+":"+tag+":"+authorID+":"+likerID)
	defer releaseKey(key)

	liked, err := s.exists(key)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return liked, nil
}

// CountLikes counts the like markers on a review. Used by tests and
// consistency checks; normal reads use the denormalized count on the
// review itself.
func (s *Store) CountLikes(_ context.Context, venueID, tag, authorID string) (int, error) {
	prefix := []byte(likeReviewPrefix(venueID, tag, authorID))
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return count, nil
}
