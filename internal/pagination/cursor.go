package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Cursor represents a decoded pagination cursor
type Cursor struct {
	LastID    int64
	Timestamp time.Time
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor from the last item ID and timestamp
func EncodeCursor(lastID int64, timestamp time.Time) string {
	if lastID <= 0 {
		return ""
	}
	raw := strconv.FormatInt(lastID, 10) + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a base64-encoded cursor and returns the last ID and timestamp
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	lastID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || lastID <= 0 {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    lastID,
		Timestamp: timestamp,
	}, nil
}

// CreateNextCursor creates a cursor for the next page based on the last item
// Returns empty string if there are no more items
func CreateNextCursor[T any](items []T, limit int, getID func(T) int64, getTimestamp func(T) time.Time) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	lastItem := items[len(items)-1]
	return EncodeCursor(getID(lastItem), getTimestamp(lastItem))
}
