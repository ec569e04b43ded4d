package domain

import (
	"math"
	"time"
)

// RatingComponents holds the four scored aspects of a screen review.
// Each score ranges 0 to 5 in half-point steps.
type RatingComponents struct {
	Screen  float64 `json:"screen"`
	Picture float64 `json:"picture"`
	Sound   float64 `json:"sound"`
	Seat    float64 `json:"seat"`
}

// Overall returns the arithmetic mean of the four components.
// This is the only way an overall score is ever produced; it is
// recomputed on every write, never edited independently.
func (c RatingComponents) Overall() float64 {
	return (c.Screen + c.Picture + c.Sound + c.Seat) / 4
}

// Valid reports whether every component is in range and on a half-point step.
func (c RatingComponents) Valid() bool {
	for _, v := range [4]float64{c.Screen, c.Picture, c.Sound, c.Seat} {
		if v < 0 || v > 5 {
			return false
		}
		if scaled := v * 2; scaled != math.Trunc(scaled) {
			return false
		}
	}
	return true
}

// Review is one user's rating of one premium format at one venue.
// At most one review exists per (venue, tag, author); the author ID
// doubles as the document identity within the tag.
type Review struct {
	VenueID    string           `json:"venue_id"`
	Tag        string           `json:"tag"`
	AuthorID   string           `json:"author_id"`
	AuthorName string           `json:"author_name"` // Display name snapshot at write time
	Components RatingComponents `json:"components"`
	Overall    float64          `json:"overall"`
	Comment    string           `json:"comment,omitempty"`
	LikeCount  int              `json:"like_count"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// LikeMarker records that one user likes one review. The review's
// LikeCount equals the number of markers existing for it.
type LikeMarker struct {
	VenueID   string    `json:"venue_id"`
	Tag       string    `json:"tag"`
	AuthorID  string    `json:"author_id"`
	LikerID   string    `json:"liker_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates all reviews for one (venue, tag) pair.
// Count must equal the number of existing reviews for the pair and
// Sum the total of their overall scores; every transaction that
// touches a review maintains both and recomputes Average.
type RatingSummary struct {
	VenueID   string    `json:"venue_id"`
	Tag       string    `json:"tag"`
	Count     int       `json:"count"`
	Sum       float64   `json:"sum"`
	Average   float64   `json:"average"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recompute derives Average from Count and Sum. A summary with no
// reviews is pinned to exact zeros so float drift never survives the
// last delete.
func (s *RatingSummary) Recompute() {
	if s.Count <= 0 {
		s.Count = 0
		s.Sum = 0
		s.Average = 0
		return
	}
	s.Average = s.Sum / float64(s.Count)
}

// ReviewSort selects the ordering for review listings.
type ReviewSort string

const (
	// ReviewSortLatest orders by most recently updated first.
	ReviewSortLatest ReviewSort = "latest"
	// ReviewSortLikes orders by like count, most liked first.
	ReviewSortLikes ReviewSort = "likes"
)
