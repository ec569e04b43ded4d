package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Name(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected string
	}{
		{"prefers display name", User{Email: "mina@example.com", DisplayName: "mina"}, "mina"},
		{"falls back to email", User{Email: "mina@example.com"}, "mina@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.Name())
		})
	}
}

func TestSession_IsExpired(t *testing.T) {
	active := Session{ExpiresAt: time.Now().Add(time.Hour)}
	expired := Session{ExpiresAt: time.Now().Add(-time.Hour)}

	assert.False(t, active.IsExpired())
	assert.True(t, expired.IsExpired())
}

func TestSession_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		expected string
	}{
		{"device name wins", Session{DeviceName: "Mina's iPhone", Platform: "iOS"}, "Mina's iPhone"},
		{"platform fallback", Session{Platform: "Android"}, "Android"},
		{"client with version", Session{ClientName: "Marquee Web", ClientVersion: "1.2.0"}, "Marquee Web 1.2.0"},
		{"nothing known", Session{}, "Unknown Device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.session.DisplayName())
		})
	}
}
