package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexora-ai/lexora/internal/domain"
	"github.com/lexora-ai/lexora/internal/pagination"
	"github.com/lexora-ai/lexora/internal/telemetry"
)

const titleMaxChars = 100

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByOwnerWithCursor(ctx context.Context, ownerID int64, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	TouchLastAccessed(ctx context.Context, id int64, t time.Time) error
	UpdateStage(ctx context.Context, id int64, stage domain.ProcessingStage) error
}

// DocumentConversationCounter counts live references to a document.
type DocumentConversationCounter interface {
	CountActiveByDocument(ctx context.Context, documentID int64) (int, error)
}

// DocumentEmbeddingCounter reports how many active embeddings a document has.
type DocumentEmbeddingCounter interface {
	CountActiveByDocument(ctx context.Context, documentID int64) (int, error)
}

// UserRepositoryInterface defines the repository interface for user lookups
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// UploadStore persists raw upload bytes for later extraction.
type UploadStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// DocumentPageResult is one page of a document listing.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// DocumentInfo pairs a document with its active embedding count. The gap
// between ChunkCount and ActiveEmbeddings surfaces partial ingestion.
type DocumentInfo struct {
	Document         *domain.Document
	ActiveEmbeddings int
}

// DocumentService handles document upload, listing, and deletion
type DocumentService struct {
	docs       DocumentRepositoryInterface
	convs      DocumentConversationCounter
	users      UserRepositoryInterface
	embeddings DocumentEmbeddingCounter
	ingest     *IngestService
	store      UploadStore // nil when object storage is not configured
	tx         TxRunner
	now        func() time.Time
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docs DocumentRepositoryInterface,
	convs DocumentConversationCounter,
	users UserRepositoryInterface,
	embeddings DocumentEmbeddingCounter,
	ingest *IngestService,
	store UploadStore,
	tx TxRunner,
) *DocumentService {
	return &DocumentService{
		docs:       docs,
		convs:      convs,
		users:      users,
		embeddings: embeddings,
		ingest:     ingest,
		store:      store,
		tx:         tx,
		now:        time.Now,
	}
}

// UploadText ingests raw text synchronously and returns the completed
// document, including its chunk count.
func (s *DocumentService) UploadText(ctx context.Context, userID int64, title, content string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.UploadText", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "upload_text",
	})
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyContent
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &domain.Document{
		OwnerID:    &userID,
		Title:      boundTitle(title),
		Source:     "upload",
		Content:    content,
		Visibility: domain.VisibilityFor(user.Role),
		Status:     domain.DocumentStatusProcessing,
		// Past the queue stage from the start: inline text ingests
		// synchronously and must not be claimed by the worker.
		Stage:     domain.StageExtractingText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	id, err := s.docs.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := s.ingest.Process(ctx, id); err != nil {
		return nil, err
	}

	return s.docs.GetByID(ctx, id)
}

// UploadFile stores an uploaded source file and creates a document in
// processing status; the background worker runs extraction and embedding.
// Plain text files skip the queue and ingest synchronously.
func (s *DocumentService) UploadFile(ctx context.Context, userID int64, fileName string, data []byte) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.UploadFile", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "upload_file",
	})
	defer span.End()

	if len(data) == 0 {
		return nil, domain.ErrEmptyContent
	}

	fileType := normalizeFileType(filepath.Ext(fileName))
	if fileType == "txt" || fileType == "md" {
		return s.UploadText(ctx, userID, fileName, string(data))
	}

	if s.store == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "object storage is not configured for binary uploads")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &domain.Document{
		OwnerID:    &userID,
		Title:      boundTitle(fileName),
		FileName:   fileName,
		FileType:   fileType,
		FileSize:   int64(len(data)),
		Source:     "upload",
		Visibility: domain.VisibilityFor(user.Role),
		Status:     domain.DocumentStatusProcessing,
		// Created past the queue stage so the worker cannot claim the
		// document before its source bytes have been stored.
		Stage:     domain.StageExtractingText,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	id, err := s.docs.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = id

	if err := s.store.Upload(ctx, sourceKey(doc), data, mimeTypeFor(fileType)); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store document source", err)
	}

	// Source is durable; hand the document to the ingest worker.
	if err := s.docs.UpdateStage(ctx, id, domain.StagePending); err != nil {
		return nil, err
	}
	doc.Stage = domain.StagePending

	return doc, nil
}

// List returns one page of the user's documents, newest activity first.
func (s *DocumentService) List(ctx context.Context, userID int64, cursor string, limit int) (*DocumentPageResult, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.docs.ListByOwnerWithCursor(ctx, userID, decoded, limit)
}

// GetInfo returns a document visible to the user along with its active
// embedding count.
func (s *DocumentService) GetInfo(ctx context.Context, userID, documentID int64) (*DocumentInfo, error) {
	doc, err := s.visibleDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	count, err := s.embeddings.CountActiveByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &DocumentInfo{Document: doc, ActiveEmbeddings: count}, nil
}

// Delete soft-deletes a document and purges its cache entries. Deletion is
// refused while active conversations reference the document, and public
// documents require the admin role.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == domain.DocumentStatusDeleted {
		return domain.ErrDocumentNotFound
	}

	if doc.OwnerID == nil || *doc.OwnerID != userID {
		return domain.ErrNotDocumentOwner
	}
	if doc.Visibility == domain.VisibilityPublic {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsAdmin() {
			return domain.ErrAdminOnly
		}
	}

	inUse, err := s.convs.CountActiveByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return domain.ErrDocumentInUse
	}

	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().SoftDelete(ctx, documentID); err != nil {
			return err
		}
		return repos.SearchCache().DeleteByDocument(ctx, documentID)
	})
}

// visibleDocument returns a non-deleted document the user may read: their
// own, or any public one.
func (s *DocumentService) visibleDocument(ctx context.Context, userID, documentID int64) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.DocumentStatusDeleted {
		return nil, domain.ErrDocumentNotFound
	}
	if doc.Visibility == domain.VisibilityPublic {
		return doc, nil
	}
	if doc.OwnerID == nil || *doc.OwnerID != userID {
		return nil, domain.ErrNotDocumentOwner
	}
	return doc, nil
}

func boundTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled document"
	}
	if runes := []rune(title); len(runes) > titleMaxChars {
		return string(runes[:titleMaxChars])
	}
	return title
}
