package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // The number of items per page (defaults to 100 with a maximum of 1000)
	Cursor string // Opaque cursor for next page (empty for first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total,omitempty"` // Optional: total count (expensive to compute)
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Limit:  100,
		Cursor: "",
	}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 100
	}

	if p.Limit > 1000 {
		p.Limit = 1000
	}
}

// EncodeCursor creates an opaque cursor from a key. For key-ordered
// scans the cursor is the last seen key.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to a key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}

	return string(decoded), nil
}

// EncodeOffsetCursor creates an opaque cursor from a numeric offset.
// Used by listings that sort in memory rather than by key order.
func EncodeOffsetCursor(offset int) string {
	return EncodeCursor(strconv.Itoa(offset))
}

// DecodeOffsetCursor decodes an offset cursor. Empty means offset zero.
func DecodeOffsetCursor(cursor string) (int, error) {
	decoded, err := DecodeCursor(cursor)
	if err != nil {
		return 0, err
	}
	if decoded == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(decoded)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid cursor offset: %q", decoded)
	}
	return offset, nil
}
