package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/sse"
)

// ToggleFavorite flips a user's favorite marker for a venue. The read
// and the write share one transaction, so two racing toggles settle on
// one coherent final state instead of both "adding". Returns whether
// the venue is favorited after the toggle.
func (s *Store) ToggleFavorite(ctx context.Context, userID, venueID string) (bool, error) {
	key := favoriteKey(userID, venueID)
	favorited := false

	err := s.RunTransaction(ctx, func(txn *badger.Txn) error {
		exists, err := existsTxn(txn, key)
		if err != nil {
			return fmt.Errorf("check favorite: %w", err)
		}

		if exists {
			favorited = false
			return txn.Delete([]byte(key))
		}

		favorited = true
		return setTxn(txn, key, domain.Favorite{
			UserID:    userID,
			VenueID:   venueID,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return false, err
	}

	s.emit(sse.NewFavoriteToggledEvent(userID, venueID, favorited))

	return favorited, nil
}

// IsFavorite reports whether a user has favorited a venue.
func (s *Store) IsFavorite(_ context.Context, userID, venueID string) (bool, error) {
	key := buildKey(favoritePrefix, userID+":"+venueID)
	defer releaseKey(key)

	favorited, err := s.exists(key)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return favorited, nil
}

// ListFavoriteVenueIDs returns the venue IDs a user has favorited, in
// insertion-key order.
func (s *Store) ListFavoriteVenueIDs(_ context.Context, userID string) ([]string, error) {
	prefix := []byte(favoriteUserPrefix(userID))
	var venueIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // Venue ID is in the key

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// Key format: fav:userID:venueID
			key := string(it.Item().Key())
			venueID := strings.TrimPrefix(key, string(prefix))
			if venueID == "" {
				continue
			}
			venueIDs = append(venueIDs, venueID)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	return venueIDs, nil
}

// ListFavoriteVenues joins a user's favorites against the venue
// records. Favorites pointing at venues that no longer exist are
// skipped rather than surfaced as errors.
func (s *Store) ListFavoriteVenues(ctx context.Context, userID string) ([]*domain.Venue, error) {
	ids, err := s.ListFavoriteVenueIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	venues := make([]*domain.Venue, 0, len(ids))
	for _, id := range ids {
		venue, err := s.GetVenue(ctx, id)
		if err != nil {
			if errors.Is(err, ErrVenueNotFound) {
				continue // Venue removed from the catalog
			}
			return nil, err
		}
		venues = append(venues, venue)
	}

	return venues, nil
}
