package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexora-ai/lexora/internal/domain"
)

type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks clears a document's chunks ahead of re-ingestion. Embeddings
// go with them via the foreign key cascade.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`,
		documentID,
	)
	return err
}

func (r *ChunkRepository) SaveChunk(ctx context.Context, chunk *domain.Chunk) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO document_chunks (document_id, chunk_index, content, content_hash, token_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		chunk.DocumentID, chunk.Index, chunk.Content, chunk.ContentHash, chunk.TokenCount, chunk.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID int64) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, content_hash, token_count, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.ContentHash, &c.TokenCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}
