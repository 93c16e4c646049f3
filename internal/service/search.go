package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lexora-ai/lexora/internal/domain"
)

// globalKnowledgeHeading labels shared-corpus results so answers can
// attribute them to the knowledge base rather than the user's document.
const globalKnowledgeHeading = "**Global Knowledge Base:**"

// EmbeddingProvider generates query and chunk embeddings.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchEmbeddingRepository lists active embeddings in a retrieval scope.
type SearchEmbeddingRepository interface {
	ListActiveByDocument(ctx context.Context, documentID int64) ([]Candidate, error)
	ListActivePublic(ctx context.Context) ([]Candidate, error)
}

// SearchCacheRepository persists memoized search results.
type SearchCacheRepository interface {
	Get(ctx context.Context, documentID int64, queryHash []byte) (*domain.SearchCacheEntry, error)
	Touch(ctx context.Context, id int64, expiresAt time.Time) error
	Put(ctx context.Context, entry *domain.SearchCacheEntry) error
}

// SearchService runs similarity search over a document or the public corpus,
// memoizing document-scoped results.
type SearchService struct {
	embed EmbeddingProvider
	repo  SearchEmbeddingRepository
	cache SearchCacheRepository
	now   func() time.Time
}

// NewSearchService creates a new SearchService instance
func NewSearchService(embed EmbeddingProvider, repo SearchEmbeddingRepository, cache SearchCacheRepository) *SearchService {
	return &SearchService{
		embed: embed,
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// NewSearchServiceWithClock creates a SearchService with a custom clock (for testing)
func NewSearchServiceWithClock(embed EmbeddingProvider, repo SearchEmbeddingRepository, cache SearchCacheRepository, now func() time.Time) *SearchService {
	return &SearchService{embed: embed, repo: repo, cache: cache, now: now}
}

// SearchDocument returns the relevant context block for a query within one
// document, consulting the cache first. An empty string means nothing
// cleared the relevance threshold; the caller decides the fallback.
// Degraded outcomes (provider down, no embeddings) are not errors.
func (s *SearchService) SearchDocument(ctx context.Context, documentID int64, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	queryHash := domain.QueryFingerprint(query)
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, documentID, queryHash)
		if err != nil {
			log.Printf("search cache read failed for document %d: %v", documentID, err)
		} else if entry != nil && !entry.ExpiredAt(s.now()) {
			// A hit slides the expiry forward by a full window.
			entry.Slide(s.now())
			if err := s.cache.Touch(ctx, entry.ID, entry.ExpiresAt); err != nil {
				log.Printf("search cache touch failed for entry %d: %v", entry.ID, err)
			}
			return entry.Results, nil
		}
	}

	queryVector, err := s.embed.Embed(ctx, query)
	if err != nil {
		log.Printf("query embedding failed, degrading to no document context: %v", err)
		return "", nil
	}

	candidates, err := s.repo.ListActiveByDocument(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("failed to list document embeddings: %w", err)
	}

	ranked := RankCandidates(queryVector, candidates)
	if len(ranked) == 0 {
		return "", nil
	}

	contents := make([]string, 0, len(ranked))
	for _, r := range ranked {
		contents = append(contents, r.Content)
	}
	result := strings.Join(contents, "\n\n")

	if s.cache != nil {
		entry := domain.NewSearchCacheEntry(documentID, query, result, s.now())
		if err := s.cache.Put(ctx, entry); err != nil {
			// Duplicate writes from racing requests are acceptable;
			// so is losing one.
			log.Printf("search cache write failed for document %d: %v", documentID, err)
		}
	}

	return result, nil
}

// SearchGlobal returns the relevant context block from the public knowledge
// base, formatted with per-document attribution. Empty means no public
// embedding cleared the threshold.
func (s *SearchService) SearchGlobal(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	queryVector, err := s.embed.Embed(ctx, query)
	if err != nil {
		log.Printf("query embedding failed, degrading to no global context: %v", err)
		return "", nil
	}

	candidates, err := s.repo.ListActivePublic(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list public embeddings: %w", err)
	}

	ranked := RankCandidates(queryVector, candidates)
	if len(ranked) == 0 {
		return "", nil
	}

	return formatGlobalContext(ranked), nil
}

func formatGlobalContext(results []RankedResult) string {
	var b strings.Builder
	b.WriteString(globalKnowledgeHeading)
	b.WriteString("\n")
	for _, r := range results {
		b.WriteString(fmt.Sprintf("**%s**\n%s\n\n", r.DocumentTitle, r.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}
