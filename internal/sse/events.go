// Package sse implements Server-Sent Events for real-time rating and review updates.
package sse

import (
	"time"

	"github.com/marqueeapp/marquee-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventReviewSaved represents a review create or edit.
	EventReviewSaved EventType = "review.saved"
	// EventReviewDeleted represents a review deletion.
	EventReviewDeleted EventType = "review.deleted"
	// EventReviewLiked represents a like toggle on a review.
	EventReviewLiked EventType = "review.liked"

	// EventSummaryUpdated represents a rating summary change for a (venue, tag) pair.
	// Emitted alongside every review save and delete.
	EventSummaryUpdated EventType = "summary.updated"

	// EventFavoriteToggled represents a user favoriting or unfavoriting a venue.
	// Only sent to that user's own connections.
	EventFavoriteToggled EventType = "favorite.toggled"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// When set, the event is only delivered to connections belonging to
	// this user. Empty string means broadcast to all.
	UserID string `json:"-"`
}

// ReviewEventData is the data payload for review.saved and review.liked events.
// Carries the full review so clients can render without a follow-up fetch.
type ReviewEventData struct {
	Review *domain.Review `json:"review"`
}

// ReviewDeletedEventData is the data payload for review delete events.
type ReviewDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	VenueID   string    `json:"venue_id"`
	Tag       string    `json:"tag"`
	AuthorID  string    `json:"author_id"`
}

// SummaryEventData is the data payload for summary.updated events.
type SummaryEventData struct {
	Summary *domain.RatingSummary `json:"summary"`
}

// FavoriteEventData is the data payload for favorite.toggled events.
type FavoriteEventData struct {
	VenueID   string `json:"venue_id"`
	Favorited bool   `json:"favorited"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewReviewSavedEvent creates a review.saved event.
func NewReviewSavedEvent(review *domain.Review) Event {
	return Event{
		Type:      EventReviewSaved,
		Data:      ReviewEventData{Review: review},
		Timestamp: time.Now(),
	}
}

// NewReviewDeletedEvent creates a review.deleted event.
func NewReviewDeletedEvent(venueID, tag, authorID string, deletedAt time.Time) Event {
	return Event{
		Type: EventReviewDeleted,
		Data: ReviewDeletedEventData{
			DeletedAt: deletedAt,
			VenueID:   venueID,
			Tag:       tag,
			AuthorID:  authorID,
		},
		Timestamp: time.Now(),
	}
}

// NewReviewLikedEvent creates a review.liked event carrying the review
// with its updated like count.
func NewReviewLikedEvent(review *domain.Review) Event {
	return Event{
		Type:      EventReviewLiked,
		Data:      ReviewEventData{Review: review},
		Timestamp: time.Now(),
	}
}

// NewSummaryUpdatedEvent creates a summary.updated event.
func NewSummaryUpdatedEvent(summary *domain.RatingSummary) Event {
	return Event{
		Type:      EventSummaryUpdated,
		Data:      SummaryEventData{Summary: summary},
		Timestamp: time.Now(),
	}
}

// NewFavoriteToggledEvent creates a favorite.toggled event scoped to one user.
func NewFavoriteToggledEvent(userID, venueID string, favorited bool) Event {
	return Event{
		Type: EventFavoriteToggled,
		Data: FavoriteEventData{
			VenueID:   venueID,
			Favorited: favorited,
		},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
