package domain

import (
	"strings"
	"time"
)

const (
	// SearchCacheTTL is the window a cache entry stays valid. A hit slides
	// the expiry forward by the same window.
	SearchCacheTTL = 60 * time.Minute

	cachedQueryTextChars = 1000
)

// SearchCacheEntry memoizes a ranked search result for one (document, query)
// pair. Expired entries are logically absent whether or not a purge has
// removed them; readers must re-check expiry.
type SearchCacheEntry struct {
	ID          int64
	DocumentID  int64
	QueryHash   []byte
	QueryText   string
	Results     string
	ResultCount int
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// NewSearchCacheEntry creates a cache entry for a search result with a full
// TTL from now. The query is fingerprinted raw: whitespace or casing
// variants are distinct keys.
func NewSearchCacheEntry(documentID int64, query, results string, now time.Time) *SearchCacheEntry {
	queryText := query
	if runes := []rune(queryText); len(runes) > cachedQueryTextChars {
		queryText = string(runes[:cachedQueryTextChars])
	}
	return &SearchCacheEntry{
		DocumentID:  documentID,
		QueryHash:   QueryFingerprint(query),
		QueryText:   queryText,
		Results:     results,
		ResultCount: len(strings.Split(results, "\n\n")),
		CreatedAt:   now,
		ExpiresAt:   now.Add(SearchCacheTTL),
	}
}

// QueryFingerprint returns the cache key hash for raw query text.
func QueryFingerprint(query string) []byte {
	return Fingerprint(query)
}

// ExpiredAt reports whether the entry is logically absent at the given time.
func (e *SearchCacheEntry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Slide extends the entry's validity by a full TTL from the moment of a hit.
func (e *SearchCacheEntry) Slide(now time.Time) {
	e.ExpiresAt = now.Add(SearchCacheTTL)
}
