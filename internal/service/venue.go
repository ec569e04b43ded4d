package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/marqueeapp/marquee-server/internal/domain"
	domainerrors "github.com/marqueeapp/marquee-server/internal/errors"
	"github.com/marqueeapp/marquee-server/internal/search"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// earthRadiusKm is the mean Earth radius used for distance calculations.
const earthRadiusKm = 6371.0

// VenueService handles catalog browsing, nearby lookup, per-format
// rankings, and full-text search.
type VenueService struct {
	store  *store.Store
	index  *search.VenueIndex
	logger *slog.Logger
}

// NewVenueService creates a new venue service.
func NewVenueService(store *store.Store, index *search.VenueIndex, logger *slog.Logger) *VenueService {
	return &VenueService{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// NearbyVenue is a venue with its distance from the query point.
type NearbyVenue struct {
	Venue      *domain.Venue `json:"venue"`
	DistanceKm float64       `json:"distance_km"`
}

// VenueRanking is one entry in a per-format leaderboard.
type VenueRanking struct {
	Rank    int                   `json:"rank"`
	Venue   *domain.Venue         `json:"venue"`
	Summary *domain.RatingSummary `json:"summary"`
}

// GetVenue returns a venue by ID.
func (s *VenueService) GetVenue(ctx context.Context, venueID string) (*domain.Venue, error) {
	venue, err := s.store.GetVenue(ctx, venueID)
	if err != nil {
		if errors.Is(err, store.ErrVenueNotFound) {
			return nil, domainerrors.NotFound("venue not found")
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return venue, nil
}

// ListVenues returns catalog venues matching the filter.
func (s *VenueService) ListVenues(ctx context.Context, filter store.VenueFilter) ([]*domain.Venue, error) {
	venues, err := s.store.ListVenues(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

// Nearby returns venues within radiusKm of the point, closest first.
// A tag narrows results to venues offering that premium format.
func (s *VenueService) Nearby(ctx context.Context, lat, lng, radiusKm float64, tag string, limit int) ([]NearbyVenue, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, domainerrors.Validation("invalid coordinates")
	}
	if radiusKm <= 0 {
		radiusKm = 10
	}
	if limit <= 0 {
		limit = 20
	}

	venues, err := s.store.ListVenues(ctx, store.VenueFilter{Tag: tag})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	nearby := make([]NearbyVenue, 0, len(venues))
	for _, v := range venues {
		d := haversineKm(lat, lng, v.Lat, v.Lng)
		if d <= radiusKm {
			nearby = append(nearby, NearbyVenue{Venue: v, DistanceKm: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

// Rankings returns venues offering the tag ordered by average rating.
// Venues without reviews for the tag are excluded. Ties break on review
// count, then venue name for a stable order.
func (s *VenueService) Rankings(ctx context.Context, tag string, limit int) ([]VenueRanking, error) {
	if tag == "" {
		return nil, domainerrors.Validation("tag is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	venues, err := s.store.ListVenues(ctx, store.VenueFilter{Tag: tag})
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	rankings := make([]VenueRanking, 0, len(venues))
	for _, v := range venues {
		summary, err := s.store.GetSummary(ctx, v.ID, tag)
		if err != nil {
			return nil, fmt.Errorf("get summary for %s: %w", v.ID, err)
		}
		if summary.Count == 0 {
			continue
		}
		rankings = append(rankings, VenueRanking{Venue: v, Summary: summary})
	}

	sort.Slice(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.Summary.Average != b.Summary.Average {
			return a.Summary.Average > b.Summary.Average
		}
		if a.Summary.Count != b.Summary.Count {
			return a.Summary.Count > b.Summary.Count
		}
		return a.Venue.Name < b.Venue.Name
	})

	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings, nil
}

// Search runs a full-text query against the venue index.
func (s *VenueService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search venues: %w", err)
	}
	return result, nil
}

// DocumentCount returns the number of venues in the search index.
func (s *VenueService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocumentCount()
}

// ReindexAll rebuilds the search index from the store. Used after
// catalog seeding.
func (s *VenueService) ReindexAll(ctx context.Context) (int, error) {
	venues, err := s.store.ListVenues(ctx, store.VenueFilter{})
	if err != nil {
		return 0, fmt.Errorf("list venues: %w", err)
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	if err := s.index.IndexVenues(venues); err != nil {
		return 0, fmt.Errorf("index venues: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Venue index rebuilt", "count", len(venues))
	}
	return len(venues), nil
}

// haversineKm computes the great-circle distance between two points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
