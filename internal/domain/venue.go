package domain

import "slices"

// Venue represents a cinema location that can be rated and reviewed.
// Venues are seeded from a catalog file and are read-only at runtime;
// the server never mutates them outside of seeding.
type Venue struct {
	Syncable
	Name    string  `json:"name"`
	Brand   string  `json:"brand,omitempty"`  // Chain name: CGV, Megabox, AMC, etc.
	Region  string  `json:"region,omitempty"` // Coarse region label for filtering
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`

	// Tags lists the premium formats this venue offers, in display order.
	// Reviews and rating summaries are keyed per tag.
	Tags []string `json:"tags"`
}

// HasTag returns true if the venue offers the given premium format.
func (v *Venue) HasTag(tag string) bool {
	return slices.Contains(v.Tags, tag)
}
