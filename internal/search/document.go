// Package search provides full-text venue search using Bleve.
// It supports fuzzy matching on venue names, filtering by brand, region, and
// premium-format tag, and faceted counts for the discovery screens.
package search

import (
	"github.com/marqueeapp/marquee-server/internal/domain"
)

// VenueDocument is the document structure for the Bleve index.
//
// Design note: venues are denormalized into flat documents so a single query
// covers name, brand, and address text. The catalog is small (hundreds of
// screens per country), so index size is never a concern.
type VenueDocument struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Brand   string `json:"brand"`
	Region  string `json:"region"`
	Address string `json:"address"`

	// Premium format tags offered at this venue (IMAX, Dolby, 4DX, ScreenX)
	Tags []string `json:"tags,omitempty"`

	// Coordinates stored for result display, not queried through Bleve.
	// Distance filtering happens against the store, which holds the
	// authoritative venue records.
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	// Timestamps for sorting by recency
	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *VenueDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
		"lat":        d.Lat,
		"lng":        d.Lng,
	}

	// Optional fields - only add if non-empty
	if d.Brand != "" {
		m["brand"] = d.Brand
	}
	if d.Region != "" {
		m["region"] = d.Region
	}
	if d.Address != "" {
		m["address"] = d.Address
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// VenueToDocument converts a domain Venue to a VenueDocument.
func VenueToDocument(v *domain.Venue) *VenueDocument {
	return &VenueDocument{
		ID:        v.ID,
		Name:      v.Name,
		Brand:     v.Brand,
		Region:    v.Region,
		Address:   v.Address,
		Tags:      v.Tags,
		Lat:       v.Lat,
		Lng:       v.Lng,
		CreatedAt: v.CreatedAt.UnixMilli(),
		UpdatedAt: v.UpdatedAt.UnixMilli(),
	}
}
