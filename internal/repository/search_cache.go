package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexora-ai/lexora/internal/domain"
)

type SearchCacheRepository struct {
	db dbtx
}

func NewSearchCacheRepository(pool *pgxpool.Pool) *SearchCacheRepository {
	return &SearchCacheRepository{db: pool}
}

func NewSearchCacheRepositoryWithTx(tx pgx.Tx) *SearchCacheRepository {
	return &SearchCacheRepository{db: tx}
}

// Get returns the freshest live entry for the query, or nil on a miss.
// Racing writers may leave duplicate rows for one query hash; the newest wins.
func (r *SearchCacheRepository) Get(ctx context.Context, documentID int64, queryHash []byte) (*domain.SearchCacheEntry, error) {
	var e domain.SearchCacheEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, query_hash, query_text, results, result_count, created_at, expires_at
		 FROM search_cache
		 WHERE document_id = $1 AND query_hash = $2 AND expires_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		documentID, queryHash, time.Now().UTC(),
	).Scan(&e.ID, &e.DocumentID, &e.QueryHash, &e.QueryText, &e.Results, &e.ResultCount, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Touch slides an entry's expiry forward.
func (r *SearchCacheRepository) Touch(ctx context.Context, id int64, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE search_cache SET expires_at = $1 WHERE id = $2`,
		expiresAt, id,
	)
	return err
}

func (r *SearchCacheRepository) Put(ctx context.Context, entry *domain.SearchCacheEntry) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO search_cache (document_id, query_hash, query_text, results, result_count, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.DocumentID, entry.QueryHash, entry.QueryText, entry.Results, entry.ResultCount, entry.CreatedAt, entry.ExpiresAt,
	).Scan(&entry.ID)
}

func (r *SearchCacheRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM search_cache WHERE document_id = $1`,
		documentID,
	)
	return err
}

// DeleteExpired removes dead entries; run periodically by the janitor worker.
func (r *SearchCacheRepository) DeleteExpired(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM search_cache WHERE expires_at <= $1`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
