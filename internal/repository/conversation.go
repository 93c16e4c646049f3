package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexora-ai/lexora/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO conversations (user_id, title, status, selected_document_id, message_count, last_message_preview, is_pinned, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		c.UserID, c.Title, c.Status, c.SelectedDocumentID, c.MessageCount, nullableString(c.LastMessagePreview), c.IsPinned, c.CreatedAt, c.LastUpdated,
	).Scan(&id)
	return id, err
}

func (r *ConversationRepository) GetForUser(ctx context.Context, conversationID, userID int64) (*domain.Conversation, error) {
	var c domain.Conversation
	var preview pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, title, status, selected_document_id, message_count, last_message_preview, is_pinned, created_at, last_updated
		 FROM conversations
		 WHERE id = $1 AND user_id = $2 AND status = $3`,
		conversationID, userID, domain.ConversationStatusActive,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &c.SelectedDocumentID, &c.MessageCount, &preview, &c.IsPinned, &c.CreatedAt, &c.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	if preview.Valid {
		c.LastMessagePreview = preview.String
	}
	return &c, nil
}

// ListByUser returns the user's active conversations, pinned ones first and
// then by most recent activity.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Conversation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, title, status, selected_document_id, message_count, last_message_preview, is_pinned, created_at, last_updated
		 FROM conversations
		 WHERE user_id = $1 AND status = $2
		 ORDER BY is_pinned DESC, last_updated DESC`,
		userID, domain.ConversationStatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var preview pgtype.Text
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &c.SelectedDocumentID, &c.MessageCount, &preview, &c.IsPinned, &c.CreatedAt, &c.LastUpdated); err != nil {
			return nil, err
		}
		if preview.Valid {
			c.LastMessagePreview = preview.String
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, sender, content, content_hash, token_count, model, is_edited, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		var model pgtype.Text
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.ContentHash, &m.TokenCount, &model, &m.IsEdited, &m.CreatedAt); err != nil {
			return nil, err
		}
		if model.Valid {
			m.Model = model.String
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, m *domain.Message) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender, content, content_hash, token_count, model, is_edited, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		m.ConversationID, m.Sender, m.Content, m.ContentHash, m.TokenCount, nullableString(m.Model), m.IsEdited, m.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (r *ConversationRepository) Update(ctx context.Context, c *domain.Conversation) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations
		 SET title = $1, selected_document_id = $2, message_count = $3, last_message_preview = $4, is_pinned = $5, last_updated = $6
		 WHERE id = $7`,
		c.Title, c.SelectedDocumentID, c.MessageCount, nullableString(c.LastMessagePreview), c.IsPinned, c.LastUpdated, c.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) SoftDelete(ctx context.Context, conversationID int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET status = $1, last_updated = $2 WHERE id = $3 AND status <> $1`,
		domain.ConversationStatusDeleted, time.Now().UTC(), conversationID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) SetPinned(ctx context.Context, conversationID int64, pinned bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET is_pinned = $1 WHERE id = $2`,
		pinned, conversationID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// CountActiveByDocument reports how many live conversations still reference a
// document; deletion is refused while this is non-zero.
func (r *ConversationRepository) CountActiveByDocument(ctx context.Context, documentID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations WHERE selected_document_id = $1 AND status = $2`,
		documentID, domain.ConversationStatusActive,
	).Scan(&count)
	return count, err
}
