package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/service"
)

type EmbeddingRepository struct {
	db dbtx
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: pool}
}

func NewEmbeddingRepositoryWithTx(tx pgx.Tx) *EmbeddingRepository {
	return &EmbeddingRepository{db: tx}
}

// SaveEmbeddings writes one batch of embeddings in a single round trip.
func (r *EmbeddingRepository) SaveEmbeddings(ctx context.Context, embeddings []*domain.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range embeddings {
		batch.Queue(
			`INSERT INTO embeddings (chunk_id, document_id, vector, dimensions, chunk_index, model, active, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ChunkID, e.DocumentID, domain.EncodeVector(e.Vector), e.Dimensions, e.ChunkIndex, e.Model, e.Active, e.CreatedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range embeddings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save embedding batch: %w", err)
		}
	}
	return nil
}

// ListActiveByDocument loads the document's active embeddings as ranked-search
// candidates, vectors decoded.
func (r *EmbeddingRepository) ListActiveByDocument(ctx context.Context, documentID int64) ([]service.Candidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.vector, e.dimensions, e.chunk_index, c.content, d.id, d.title
		 FROM embeddings e
		 JOIN document_chunks c ON c.id = e.chunk_id
		 JOIN documents d ON d.id = e.document_id
		 WHERE e.document_id = $1 AND e.active
		 ORDER BY e.chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidateRows(rows)
}

// ListActivePublic loads active embeddings across the shared public corpus.
// Only documents still owned by an admin count; demoting an owner retires
// their public documents from global retrieval without touching the rows.
func (r *EmbeddingRepository) ListActivePublic(ctx context.Context) ([]service.Candidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.vector, e.dimensions, e.chunk_index, c.content, d.id, d.title
		 FROM embeddings e
		 JOIN document_chunks c ON c.id = e.chunk_id
		 JOIN documents d ON d.id = e.document_id
		 JOIN users u ON u.id = d.owner_id
		 WHERE d.visibility = $1 AND d.status = $2 AND u.role = $3 AND e.active
		 ORDER BY d.id ASC, e.chunk_index ASC`,
		domain.VisibilityPublic, domain.DocumentStatusActive, domain.RoleAdmin,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidateRows(rows)
}

func (r *EmbeddingRepository) CountActiveByDocument(ctx context.Context, documentID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE document_id = $1 AND active`,
		documentID,
	).Scan(&count)
	return count, err
}

// DeactivateByDocument retires a document's embeddings without deleting them,
// so a failed re-ingestion can be diagnosed against the previous vectors.
func (r *EmbeddingRepository) DeactivateByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE embeddings SET active = FALSE WHERE document_id = $1`,
		documentID,
	)
	return err
}

func scanCandidateRows(rows pgx.Rows) ([]service.Candidate, error) {
	var candidates []service.Candidate
	for rows.Next() {
		var raw []byte
		var dimensions int
		var c service.Candidate
		if err := rows.Scan(&raw, &dimensions, &c.ChunkIndex, &c.Content, &c.DocumentID, &c.DocumentTitle); err != nil {
			return nil, err
		}
		vector, err := domain.DecodeVector(raw, dimensions)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for document %d chunk %d: %w", c.DocumentID, c.ChunkIndex, err)
		}
		c.Vector = vector
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
