package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
)

// ErrVenueNotFound is returned when a venue cannot be found by ID.
var ErrVenueNotFound = errors.New("venue not found")

// UpsertVenue creates or replaces a venue record. Venues come from the
// catalog seeder, not from user traffic, so this is a plain write with
// no aggregate bookkeeping.
func (s *Store) UpsertVenue(ctx context.Context, venue *domain.Venue) error {
	key := []byte(venuePrefix + venue.ID)

	existing, err := s.GetVenue(ctx, venue.ID)
	if err != nil && !errors.Is(err, ErrVenueNotFound) {
		return err
	}

	if existing != nil {
		venue.CreatedAt = existing.CreatedAt
		venue.Touch()
	} else {
		venue.InitTimestamps()
	}

	if err := s.set(key, venue); err != nil {
		return fmt.Errorf("upsert venue: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.IndexVenue(ctx, venue); err != nil && s.logger != nil {
			s.logger.Warn("failed to index venue", "venue_id", venue.ID, "error", err)
		}
	}

	return nil
}

// GetVenue retrieves a venue by ID.
func (s *Store) GetVenue(_ context.Context, id string) (*domain.Venue, error) {
	key := buildKey(venuePrefix, id)
	defer releaseKey(key)

	var venue domain.Venue
	if err := s.get(key, &venue); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}

	if venue.IsDeleted() {
		return nil, ErrVenueNotFound
	}

	return &venue, nil
}

// VenueFilter narrows ListVenues results. Zero values match everything.
type VenueFilter struct {
	Brand  string
	Region string
	Tag    string
}

func (f VenueFilter) matches(v *domain.Venue) bool {
	if f.Brand != "" && v.Brand != f.Brand {
		return false
	}
	if f.Region != "" && v.Region != f.Region {
		return false
	}
	if f.Tag != "" && !v.HasTag(f.Tag) {
		return false
	}
	return true
}

// ListVenues returns all non-deleted venues matching the filter. The
// catalog is small (hundreds of venues, seeded once), so a full scan
// is fine here; text queries go through the search index instead.
func (s *Store) ListVenues(_ context.Context, filter VenueFilter) ([]*domain.Venue, error) {
	prefix := []byte(venuePrefix)
	var venues []*domain.Venue

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var venue domain.Venue
				if unmarshalErr := json.Unmarshal(val, &venue); unmarshalErr != nil {
					// Skip malformed venues
					return nil //nolint:nilerr // intentionally skip malformed entries
				}

				if venue.IsDeleted() || !filter.matches(&venue) {
					return nil
				}

				venues = append(venues, &venue)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	return venues, nil
}

// CountVenues returns the number of non-deleted venues.
func (s *Store) CountVenues(ctx context.Context) (int, error) {
	venues, err := s.ListVenues(ctx, VenueFilter{})
	if err != nil {
		return 0, err
	}
	return len(venues), nil
}
