package domain

import "time"

// User represents an account in the store. Authentication credentials
// (email + password hash) live in the identity database, not here; the
// store document carries everything the rest of the system reads.
type User struct {
	Syncable
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"` // The nickname as the user typed it
	NicknameKey string    `json:"nickname_key"` // Folded form backing the uniqueness reservation
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
}

// Name returns the best available name to display for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// NicknameReservation claims a folded nickname for a single user.
// Its existence is the sole source of truth for "nickname taken";
// it is created in the same transaction as the user document.
type NicknameReservation struct {
	NicknameKey string    `json:"nickname_key"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session represents an active user session with refresh token.
// Each device gets its own session - you can see what's connected.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`

	// Device information - structured data from client
	DeviceType    string `json:"device_type"`           // mobile, tablet, desktop, web
	Platform      string `json:"platform"`              // iOS, Android, Windows, macOS, Linux, Web
	ClientName    string `json:"client_name"`           // Marquee Mobile, Marquee Web
	ClientVersion string `json:"client_version"`        // 1.0.0
	DeviceName    string `json:"device_name,omitempty"` // Mina's iPhone (optional, user-set)
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// DisplayName returns a human-readable description of the device.
func (s *Session) DisplayName() string {
	if s.DeviceName != "" {
		return s.DeviceName
	}
	if s.Platform != "" {
		return s.Platform
	}
	if s.ClientName != "" {
		if s.ClientVersion != "" {
			return s.ClientName + " " + s.ClientVersion
		}
		return s.ClientName
	}
	return "Unknown Device"
}
