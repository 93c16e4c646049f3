package jobs

import (
	"context"
	"fmt"
	"log"
)

// ExpiredCacheRepository removes dead search cache rows.
type ExpiredCacheRepository interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CacheJanitor sweeps expired search cache entries. Expiry is already
// enforced at read time; the sweep only reclaims storage.
type CacheJanitor struct {
	repo ExpiredCacheRepository
}

// NewCacheJanitor creates a new CacheJanitor instance
func NewCacheJanitor(repo ExpiredCacheRepository) *CacheJanitor {
	return &CacheJanitor{repo: repo}
}

// ProcessJobs implements the JobProcessor interface
func (j *CacheJanitor) ProcessJobs(ctx context.Context) error {
	removed, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep search cache: %w", err)
	}
	if removed > 0 {
		log.Printf("Swept %d expired search cache entries", removed)
	}
	return nil
}
