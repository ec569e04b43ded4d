// Package normalize provides utilities for normalizing user-supplied identifiers.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NicknameKey folds a nickname into its canonical reservation key.
// Two nicknames that differ only by Unicode representation, case, or
// surrounding whitespace produce the same key and therefore collide.
func NicknameKey(nickname string) string {
	folded := norm.NFKC.String(strings.TrimSpace(nickname))
	return strings.ToLower(folded)
}

// Email folds an email address for consistent index lookups.
func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
