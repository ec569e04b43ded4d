package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/search"
	"github.com/marqueeapp/marquee-server/internal/service"
	"github.com/marqueeapp/marquee-server/internal/store"
)

func (s *Server) registerVenueRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVenues",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues",
		Summary:     "List venues",
		Description: "Returns the venue catalog, optionally filtered by brand, region, or premium format",
		Tags:        []string{"Venues"},
	}, s.handleListVenues)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchVenues",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/search",
		Summary:     "Search venues",
		Description: "Full-text search over venue names and addresses with optional filters and facets",
		Tags:        []string{"Venues"},
	}, s.handleSearchVenues)

	huma.Register(s.api, huma.Operation{
		OperationID: "nearbyVenues",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/nearby",
		Summary:     "Nearby venues",
		Description: "Returns venues within a radius of a coordinate, closest first",
		Tags:        []string{"Venues"},
	}, s.handleNearbyVenues)

	huma.Register(s.api, huma.Operation{
		OperationID: "venueRankings",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/rankings",
		Summary:     "Venue rankings",
		Description: "Returns venues ranked by average rating for one premium format",
		Tags:        []string{"Venues"},
	}, s.handleVenueRankings)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVenue",
		Method:      http.MethodGet,
		Path:        "/api/v1/venues/{venueID}",
		Summary:     "Venue detail",
		Description: "Returns a venue with the rating summary for each premium format it offers",
		Tags:        []string{"Venues"},
	}, s.handleGetVenue)
}

// === DTOs ===

// ListVenuesInput contains catalog listing filters.
type ListVenuesInput struct {
	Brand  string `query:"brand" doc:"Filter by chain brand"`
	Region string `query:"region" doc:"Filter by region label"`
	Tag    string `query:"tag" doc:"Filter by offered premium format"`
	Limit  int    `query:"limit" doc:"Max venues per page (default 50, max 200)"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
}

// VenueListResponse is one page of the venue catalog.
type VenueListResponse struct {
	Venues     []*domain.Venue `json:"venues" doc:"Venues in catalog order"`
	Total      int             `json:"total" doc:"Total venues matching the filter"`
	HasMore    bool            `json:"has_more" doc:"Whether another page exists"`
	NextCursor string          `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
}

// VenueListOutput wraps the venue list for Huma.
type VenueListOutput struct {
	Body VenueListResponse
}

// SearchVenuesInput contains full-text search parameters.
type SearchVenuesInput struct {
	Query   string   `query:"q" required:"true" doc:"Search query"`
	Brands  []string `query:"brand" doc:"Restrict to these brands"`
	Regions []string `query:"region" doc:"Restrict to these regions"`
	Tags    []string `query:"tag" doc:"Require all of these premium formats"`
	Limit   int      `query:"limit" doc:"Max hits (default 20, max 100)"`
	Offset  int      `query:"offset" doc:"Hits to skip"`
	Sort    string   `query:"sort" enum:"relevance,name,recent" default:"relevance" doc:"Sort order"`
	Facets  bool     `query:"facets" doc:"Include brand/region/tag facet counts"`
}

// SearchVenuesOutput wraps search results for Huma.
type SearchVenuesOutput struct {
	Body search.SearchResult
}

// NearbyVenuesInput contains a coordinate and radius.
type NearbyVenuesInput struct {
	Lat      float64 `query:"lat" required:"true" doc:"Latitude in degrees"`
	Lng      float64 `query:"lng" required:"true" doc:"Longitude in degrees"`
	RadiusKm float64 `query:"radius_km" doc:"Search radius in km (default 10)"`
	Tag      string  `query:"tag" doc:"Only venues offering this premium format"`
	Limit    int     `query:"limit" doc:"Max venues (default 20)"`
}

// NearbyVenuesResponse lists venues ordered by distance.
type NearbyVenuesResponse struct {
	Venues []service.NearbyVenue `json:"venues" doc:"Venues closest first"`
}

// NearbyVenuesOutput wraps nearby results for Huma.
type NearbyVenuesOutput struct {
	Body NearbyVenuesResponse
}

// VenueRankingsInput selects the format to rank by.
type VenueRankingsInput struct {
	Tag   string `query:"tag" required:"true" doc:"Premium format to rank"`
	Limit int    `query:"limit" doc:"Max entries (default 20, max 50)"`
}

// VenueRankingsResponse is a per-format leaderboard.
type VenueRankingsResponse struct {
	Tag      string                 `json:"tag" doc:"Ranked premium format"`
	Rankings []service.VenueRanking `json:"rankings" doc:"Venues by average rating, best first"`
}

// VenueRankingsOutput wraps rankings for Huma.
type VenueRankingsOutput struct {
	Body VenueRankingsResponse
}

// GetVenueInput identifies a venue.
type GetVenueInput struct {
	VenueID string `path:"venueID" doc:"Venue ID"`
}

// VenueDetailResponse is a venue with its per-format rating summaries.
type VenueDetailResponse struct {
	Venue     *domain.Venue                    `json:"venue" doc:"The venue"`
	Summaries map[string]*domain.RatingSummary `json:"summaries" doc:"Rating summary keyed by premium format"`
}

// VenueDetailOutput wraps the venue detail for Huma.
type VenueDetailOutput struct {
	Body VenueDetailResponse
}

// === Handlers ===

func (s *Server) handleListVenues(ctx context.Context, input *ListVenuesInput) (*VenueListOutput, error) {
	venues, err := s.services.Venue.ListVenues(ctx, store.VenueFilter{
		Brand:  input.Brand,
		Region: input.Region,
		Tag:    input.Tag,
	})
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	offset, err := store.DecodeOffsetCursor(input.Cursor)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid cursor")
	}
	if offset > len(venues) {
		offset = len(venues)
	}

	end := offset + limit
	if end > len(venues) {
		end = len(venues)
	}

	resp := VenueListResponse{
		Venues:  venues[offset:end],
		Total:   len(venues),
		HasMore: end < len(venues),
	}
	if resp.HasMore {
		resp.NextCursor = store.EncodeOffsetCursor(end)
	}

	return &VenueListOutput{Body: resp}, nil
}

func (s *Server) handleSearchVenues(ctx context.Context, input *SearchVenuesInput) (*SearchVenuesOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Brands = input.Brands
	params.Regions = input.Regions
	params.Tags = input.Tags
	params.IncludeFacets = input.Facets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Offset > 0 {
		params.Offset = input.Offset
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}

	result, err := s.services.Venue.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	return &SearchVenuesOutput{Body: *result}, nil
}

func (s *Server) handleNearbyVenues(ctx context.Context, input *NearbyVenuesInput) (*NearbyVenuesOutput, error) {
	venues, err := s.services.Venue.Nearby(ctx, input.Lat, input.Lng, input.RadiusKm, input.Tag, input.Limit)
	if err != nil {
		return nil, err
	}

	return &NearbyVenuesOutput{Body: NearbyVenuesResponse{Venues: venues}}, nil
}

func (s *Server) handleVenueRankings(ctx context.Context, input *VenueRankingsInput) (*VenueRankingsOutput, error) {
	rankings, err := s.services.Venue.Rankings(ctx, input.Tag, input.Limit)
	if err != nil {
		return nil, err
	}

	return &VenueRankingsOutput{
		Body: VenueRankingsResponse{
			Tag:      input.Tag,
			Rankings: rankings,
		},
	}, nil
}

func (s *Server) handleGetVenue(ctx context.Context, input *GetVenueInput) (*VenueDetailOutput, error) {
	venue, err := s.services.Venue.GetVenue(ctx, input.VenueID)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*domain.RatingSummary, len(venue.Tags))
	for _, tag := range venue.Tags {
		summary, err := s.services.Review.GetSummary(ctx, venue.ID, tag)
		if err != nil {
			return nil, err
		}
		summaries[tag] = summary
	}

	return &VenueDetailOutput{
		Body: VenueDetailResponse{
			Venue:     venue,
			Summaries: summaries,
		},
	}, nil
}
