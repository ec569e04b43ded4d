package store

import "sync"

// Key prefixes for every record class in the database. Composite keys
// join their parts with ':'; IDs are NanoIDs and never contain one.
const (
	userPrefix           = "user:"
	userByEmailPrefix    = "idx:users:email:"     // For login lookups
	nicknamePrefix       = "idx:nick:"            // Nickname reservations
	sessionPrefix        = "session:"
	sessionByUserPrefix  = "idx:sessions:user:"   // For listing user sessions
	sessionByTokenPrefix = "idx:sessions:token:"  // For refresh token lookups
	venuePrefix          = "venue:"
	reviewPrefix         = "review:"
	likePrefix           = "like:"
	summaryPrefix        = "summary:"
	favoritePrefix       = "fav:"
)

// reviewKey addresses one review: review:{venueID}:{tag}:{authorID}.
func reviewKey(venueID, tag, authorID string) string {
	return reviewPrefix + venueID + ":" + tag + ":" + authorID
}

// reviewTagPrefix is the scan prefix for all reviews of one (venue, tag).
func reviewTagPrefix(venueID, tag string) string {
	return reviewPrefix + venueID + ":" + tag + ":"
}

// likeKey addresses one like marker: like:{venueID}:{tag}:{authorID}:{likerID}.
func likeKey(venueID, tag, authorID, likerID string) string {
	return likePrefix + venueID + ":" + tag + ":" + authorID + ":" + likerID
}

// likeReviewPrefix is the scan prefix for all like markers of one review.
func likeReviewPrefix(venueID, tag, authorID string) string {
	return likePrefix + venueID + ":" + tag + ":" + authorID + ":"
}

// summaryKey addresses the rating summary for one (venue, tag).
func summaryKey(venueID, tag string) string {
	return summaryPrefix + venueID + ":" + tag
}

// favoriteKey addresses one favorite marker: fav:{userID}:{venueID}.
func favoriteKey(userID, venueID string) string {
	return favoritePrefix + userID + ":" + venueID
}

// favoriteUserPrefix is the scan prefix for all favorites of one user.
func favoriteUserPrefix(userID string) string {
	return favoritePrefix + userID + ":"
}

// keyPool provides reusable byte slices for building database keys on
// read paths. Pooled keys must not be handed to txn.Set or txn.Delete:
// Badger holds write keys until commit, after the buffer is back in the
// pool.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// The returned slice is valid until releaseKey is called.
// Callers MUST call releaseKey when done with the key.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0] // Reset length, keep capacity
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Only pool buffers with reasonable capacity
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
