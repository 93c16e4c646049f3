package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/pagination"
	"github.com/lexora-ai/lexora/internal/service"
)

const documentColumns = `id, owner_id, title, file_name, file_type, file_size, source, content, content_summary,
	 visibility, status, stage, chunk_count, embedding_model, created_at, updated_at, last_accessed_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (owner_id, title, file_name, file_type, file_size, source, content, content_summary,
		                        visibility, status, stage, chunk_count, embedding_model, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		d.OwnerID, d.Title, nullableString(d.FileName), nullableString(d.FileType), d.FileSize, d.Source,
		d.Content, nullableString(d.ContentSummary), d.Visibility, d.Status, d.Stage, d.ChunkCount,
		nullableString(d.EmbeddingModel), d.CreatedAt, d.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	)
	return scanDocument(row)
}

// GetActivePrivate returns the user's own active document; deleted and
// foreign documents are indistinguishable from missing ones.
func (r *DocumentRepository) GetActivePrivate(ctx context.Context, documentID, userID int64) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE id = $1 AND owner_id = $2 AND status = $3`,
		documentID, userID, domain.DocumentStatusActive,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) ListByOwnerWithCursor(ctx context.Context, ownerID int64, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE owner_id = $1 AND status <> $2 AND (updated_at, id) < ($3, $4)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $5`,
			ownerID, domain.DocumentStatusDeleted, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE owner_id = $1 AND status <> $2
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			ownerID, domain.DocumentStatusDeleted, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) TouchLastAccessed(ctx context.Context, id int64, t time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET last_accessed_at = $1 WHERE id = $2`,
		t, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UpdateStage(ctx context.Context, id int64, stage domain.ProcessingStage) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET stage = $1, updated_at = $2 WHERE id = $3`,
		stage, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) SetContent(ctx context.Context, id int64, content, summary string, stage domain.ProcessingStage) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET content = $1, content_summary = $2, stage = $3, updated_at = $4 WHERE id = $5`,
		content, nullableString(summary), stage, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id int64, stage domain.ProcessingStage) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, stage = $2, updated_at = $3 WHERE id = $4`,
		domain.DocumentStatusError, stage, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkCompleted(ctx context.Context, id int64, chunkCount int, embeddingModel string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, stage = $2, chunk_count = $3, embedding_model = $4, updated_at = $5
		 WHERE id = $6`,
		domain.DocumentStatusActive, domain.StageCompleted, chunkCount, embeddingModel, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkProcessing claims a document back into the pipeline. The status guard
// keeps two concurrent re-ingestions from running the same document.
func (r *DocumentRepository) MarkProcessing(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, stage = $2, updated_at = $3
		 WHERE id = $4 AND status <> $1`,
		domain.DocumentStatusProcessing, domain.StagePending, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentProcessing
	}
	return nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $1`,
		domain.DocumentStatusDeleted, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ClaimPendingUploads atomically moves queued documents into extraction so a
// second worker polling at the same time cannot pick them up again.
func (r *DocumentRepository) ClaimPendingUploads(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM documents
			 WHERE status = $1 AND stage = $2
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $3
		 )
		 UPDATE documents
		 SET stage = $4, updated_at = $5
		 FROM cte
		 WHERE documents.id = cte.id
		 RETURNING documents.id`,
		domain.DocumentStatusProcessing, domain.StagePending, limit,
		domain.StageExtractingText, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var fileName, fileType, summary, model pgtype.Text
	var lastAccessed pgtype.Timestamptz
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &fileName, &fileType, &d.FileSize, &d.Source, &d.Content, &summary,
		&d.Visibility, &d.Status, &d.Stage, &d.ChunkCount, &model, &d.CreatedAt, &d.UpdatedAt, &lastAccessed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if fileName.Valid {
		d.FileName = fileName.String
	}
	if fileType.Valid {
		d.FileType = fileType.String
	}
	if summary.Valid {
		d.ContentSummary = summary.String
	}
	if model.Valid {
		d.EmbeddingModel = model.String
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		d.LastAccessedAt = &t
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var fileName, fileType, summary, model pgtype.Text
		var lastAccessed pgtype.Timestamptz
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.Title, &fileName, &fileType, &d.FileSize, &d.Source, &d.Content, &summary,
			&d.Visibility, &d.Status, &d.Stage, &d.ChunkCount, &model, &d.CreatedAt, &d.UpdatedAt, &lastAccessed,
		); err != nil {
			return nil, err
		}
		if fileName.Valid {
			d.FileName = fileName.String
		}
		if fileType.Valid {
			d.FileType = fileType.String
		}
		if summary.Valid {
			d.ContentSummary = summary.String
		}
		if model.Valid {
			d.EmbeddingModel = model.String
		}
		if lastAccessed.Valid {
			t := lastAccessed.Time
			d.LastAccessedAt = &t
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
