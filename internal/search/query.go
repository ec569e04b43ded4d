package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a venue search query.
type SearchParams struct {
	Query string // User's search query

	// Filters
	Brands  []string // Filter by exact brand names
	Regions []string // Filter by exact regions
	Tags    []string // Filter by premium format tags (venue must carry all)

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "name", "recent"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool // Include brand/region/tag facet counts
	Highlight     bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitempty"`
}

// SearchHit represents a single matching venue.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Name       string            `json:"name"`
	Brand      string            `json:"brand,omitempty"`
	Region     string            `json:"region,omitempty"`
	Address    string            `json:"address,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Lat        float64           `json:"lat,omitempty"`
	Lng        float64           `json:"lng,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Brands  []FacetCount `json:"brands,omitempty"`
	Regions []FacetCount `json:"regions,omitempty"`
	Tags    []FacetCount `json:"tags,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a venue search query.
func (s *VenueIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("brand", bleve.NewFacetRequest("brand", 20))
		searchRequest.AddFacet("region", bleve.NewFacetRequest("region", 20))
		searchRequest.AddFacet("tags", bleve.NewFacetRequest("tags", 20))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("address")
	}

	// Request stored fields
	searchRequest.Fields = []string{
		"id", "name", "brand", "region", "address", "tags", "lat", "lng",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		// Extract stored fields
		if n, ok := hit.Fields["name"].(string); ok {
			searchHit.Name = n
		}
		if b, ok := hit.Fields["brand"].(string); ok {
			searchHit.Brand = b
		}
		if r, ok := hit.Fields["region"].(string); ok {
			searchHit.Region = r
		}
		if a, ok := hit.Fields["address"].(string); ok {
			searchHit.Address = a
		}
		if lat, ok := hit.Fields["lat"].(float64); ok {
			searchHit.Lat = lat
		}
		if lng, ok := hit.Fields["lng"].(float64); ok {
			searchHit.Lng = lng
		}
		// Tags come back as a string for single values, []interface{} otherwise
		switch tags := hit.Fields["tags"].(type) {
		case string:
			searchHit.Tags = []string{tags}
		case []interface{}:
			for _, t := range tags {
				if tag, ok := t.(string); ok {
					searchHit.Tags = append(searchHit.Tags, tag)
				}
			}
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query across venue name and address.
	if params.Query != "" {
		textQueries := []query.Query{}

		// Name match with highest boost
		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		// Address match ("Shinjuku", "Odaiba")
		addressMatch := bleve.NewMatchQuery(params.Query)
		addressMatch.SetField("address")
		addressMatch.SetBoost(1.5)
		textQueries = append(textQueries, addressMatch)

		// Fuzzy matching for typo tolerance on name
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Brand filter (exact match, OR across brands)
	if len(params.Brands) > 0 {
		brandQueries := make([]query.Query, len(params.Brands))
		for i, b := range params.Brands {
			bq := bleve.NewTermQuery(b)
			bq.SetField("brand")
			brandQueries[i] = bq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(brandQueries...))
	}

	// Region filter (exact match, OR across regions)
	if len(params.Regions) > 0 {
		regionQueries := make([]query.Query, len(params.Regions))
		for i, r := range params.Regions {
			rq := bleve.NewTermQuery(r)
			rq.SetField("region")
			regionQueries[i] = rq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(regionQueries...))
	}

	// Tag filter (venue must carry every requested format)
	for _, t := range params.Tags {
		tq := bleve.NewTermQuery(t)
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "name":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if brandFacet, ok := result.Facets["brand"]; ok {
		for _, term := range brandFacet.Terms.Terms() {
			facets.Brands = append(facets.Brands, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if regionFacet, ok := result.Facets["region"]; ok {
		for _, term := range regionFacet.Terms.Terms() {
			facets.Regions = append(facets.Regions, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if tagFacet, ok := result.Facets["tags"]; ok {
		for _, term := range tagFacet.Terms.Terms() {
			facets.Tags = append(facets.Tags, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}
