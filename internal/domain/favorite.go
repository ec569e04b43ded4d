package domain

import "time"

// Favorite marks a venue as favorited by a user. Presence is the whole
// story; there is no aggregate counterpart.
type Favorite struct {
	UserID    string    `json:"user_id"`
	VenueID   string    `json:"venue_id"`
	CreatedAt time.Time `json:"created_at"`
}
