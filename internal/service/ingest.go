package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lexora-ai/lexora/internal/domain"
)

// embeddingBatchSize controls how many embeddings are flushed per write so
// an interrupted ingestion leaves at most a few chunks unembedded instead of
// losing the whole batch.
const embeddingBatchSize = 5

// IngestDocumentRepository defines the repository interface for pipeline state updates
type IngestDocumentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	UpdateStage(ctx context.Context, id int64, stage domain.ProcessingStage) error
	SetContent(ctx context.Context, id int64, content, summary string, stage domain.ProcessingStage) error
	MarkFailed(ctx context.Context, id int64, stage domain.ProcessingStage) error
	MarkCompleted(ctx context.Context, id int64, chunkCount int, embeddingModel string) error
	MarkProcessing(ctx context.Context, id int64) error
}

// IngestChunkRepository defines the repository interface for chunk persistence
type IngestChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID int64) error
	SaveChunk(ctx context.Context, chunk *domain.Chunk) (int64, error)
}

// IngestEmbeddingRepository defines the repository interface for embedding persistence
type IngestEmbeddingRepository interface {
	SaveEmbeddings(ctx context.Context, embeddings []*domain.Embedding) error
}

// SourceStore fetches stored upload bytes for extraction.
type SourceStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// IngestService runs the per-document ingestion pipeline: extract text,
// chunk, embed, store. Pipelines for different documents are independent;
// the caller serializes duplicate runs for one document via the
// processing-status claim.
type IngestService struct {
	docs       IngestDocumentRepository
	chunks     IngestChunkRepository
	embeddings IngestEmbeddingRepository
	extractor  *Extractor
	embed      EmbeddingProvider
	store      SourceStore // nil when object storage is not configured
	model      string
	now        func() time.Time
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	docs IngestDocumentRepository,
	chunks IngestChunkRepository,
	embeddings IngestEmbeddingRepository,
	extractor *Extractor,
	embed EmbeddingProvider,
	store SourceStore,
	model string,
) *IngestService {
	return &IngestService{
		docs:       docs,
		chunks:     chunks,
		embeddings: embeddings,
		extractor:  extractor,
		embed:      embed,
		store:      store,
		model:      model,
		now:        time.Now,
	}
}

// Process runs the full pipeline for a document already claimed into
// processing status. Extraction failures are terminal for the document and
// reported; a single chunk failing to embed is not.
func (s *IngestService) Process(ctx context.Context, documentID int64) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.DocumentStatusProcessing {
		return domain.ErrDocumentProcessing
	}

	text := doc.Content
	if strings.TrimSpace(text) == "" {
		text, err = s.extractText(ctx, doc)
		if err != nil {
			return err
		}
	} else {
		// Inline content skips extraction, not the stage bookkeeping.
		if doc.Stage == domain.StagePending {
			if err := s.advanceStage(ctx, doc, domain.StageExtractingText); err != nil {
				return err
			}
		}
		if err := s.advanceStage(ctx, doc, domain.StageTextExtracted); err != nil {
			return err
		}
	}

	if !domain.CanTransition(doc.Stage, domain.StageGeneratingEmbeddings) {
		return invalidStage(doc.ID, doc.Stage, domain.StageGeneratingEmbeddings)
	}
	if err := s.docs.SetContent(ctx, documentID, text, domain.Summarize(text), domain.StageGeneratingEmbeddings); err != nil {
		return err
	}
	doc.Stage = domain.StageGeneratingEmbeddings

	chunkCount, err := s.generateEmbeddings(ctx, doc, text)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings for document %d: %w", documentID, err)
	}

	if err := s.docs.MarkCompleted(ctx, documentID, chunkCount, s.model); err != nil {
		return err
	}

	log.Printf("document %d ingested: %d chunks", documentID, chunkCount)
	return nil
}

// Reingest claims a document back into processing and runs the pipeline
// again. Existing chunks and embeddings are replaced wholesale.
func (s *IngestService) Reingest(ctx context.Context, documentID int64) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == domain.DocumentStatusProcessing || !domain.IsTerminalStage(doc.Stage) {
		return domain.ErrDocumentProcessing
	}

	if err := s.docs.MarkProcessing(ctx, documentID); err != nil {
		return err
	}
	return s.Process(ctx, documentID)
}

// extractText pulls the stored source file and extracts plain text,
// recording the pipeline stage as it goes. Returns a terminal domain error
// when no text can be obtained.
func (s *IngestService) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	if err := s.advanceStage(ctx, doc, domain.StageExtractingText); err != nil {
		return "", err
	}

	if s.store == nil || doc.FileName == "" {
		if err := s.docs.MarkFailed(ctx, doc.ID, domain.StageNoContentExtracted); err != nil {
			log.Printf("failed to mark document %d as failed: %v", doc.ID, err)
		}
		return "", domain.ErrNoContentExtracted
	}

	data, err := s.store.Download(ctx, sourceKey(doc))
	if err != nil {
		if markErr := s.docs.MarkFailed(ctx, doc.ID, domain.StageExtractionFailed); markErr != nil {
			log.Printf("failed to mark document %d as failed: %v", doc.ID, markErr)
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to fetch document source", err)
	}

	usesOCR := requiresOCR(doc.FileType)
	if usesOCR {
		if err := s.advanceStage(ctx, doc, domain.StageUsingOCR); err != nil {
			return "", err
		}
	}

	result, err := s.extractor.Extract(ctx, doc.FileType, data)
	if err != nil {
		if markErr := s.docs.MarkFailed(ctx, doc.ID, domain.StageExtractionFailed); markErr != nil {
			log.Printf("failed to mark document %d as failed: %v", doc.ID, markErr)
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "text extraction failed", err)
	}
	if result.Text == "" {
		if err := s.docs.MarkFailed(ctx, doc.ID, domain.StageNoContentExtracted); err != nil {
			log.Printf("failed to mark document %d as failed: %v", doc.ID, err)
		}
		return "", domain.ErrNoContentExtracted
	}

	stage := domain.StageTextExtracted
	if result.UsedOCR {
		stage = domain.StageOCRExtracted
	}
	if err := s.advanceStage(ctx, doc, stage); err != nil {
		return "", err
	}
	return result.Text, nil
}

// advanceStage validates the pipeline transition before recording it. A
// repeat write of the current stage is allowed so a rerun can restate
// where it stands.
func (s *IngestService) advanceStage(ctx context.Context, doc *domain.Document, to domain.ProcessingStage) error {
	if doc.Stage != to && !domain.CanTransition(doc.Stage, to) {
		return invalidStage(doc.ID, doc.Stage, to)
	}
	if err := s.docs.UpdateStage(ctx, doc.ID, to); err != nil {
		return err
	}
	doc.Stage = to
	return nil
}

func invalidStage(id int64, from, to domain.ProcessingStage) error {
	return domain.NewDomainError(domain.ErrCodeInternalError,
		fmt.Sprintf("document %d cannot move from stage %s to %s", id, from, to))
}

// generateEmbeddings replaces the document's chunks and writes fresh
// embeddings in small batches. A chunk whose embedding fails is kept without
// one; the shortfall shows up as chunk count exceeding the active embedding
// count, not as an error.
func (s *IngestService) generateEmbeddings(ctx context.Context, doc *domain.Document, text string) (int, error) {
	chunks := ChunkText(text, DefaultMaxChunkSize)

	// Scale protection: oversize documents lose their tail silently.
	if limit := domain.ChunkLimit(doc.Visibility); len(chunks) > limit {
		chunks = chunks[:limit]
	}

	if err := s.chunks.ReplaceChunks(ctx, doc.ID); err != nil {
		return 0, err
	}

	saved := 0
	batch := make([]*domain.Embedding, 0, embeddingBatchSize)
	for i, content := range chunks {
		now := s.now()
		chunkID, err := s.chunks.SaveChunk(ctx, domain.NewChunk(doc.ID, i, content, now))
		if err != nil {
			return saved, err
		}
		saved++

		vector, err := s.embed.Embed(ctx, content)
		if err != nil {
			log.Printf("embedding failed for document %d chunk %d, skipping: %v", doc.ID, i, err)
			continue
		}
		if len(vector) == 0 {
			continue
		}

		batch = append(batch, domain.NewEmbedding(chunkID, doc.ID, vector, i, s.model, now))
		if len(batch) >= embeddingBatchSize {
			if err := s.embeddings.SaveEmbeddings(ctx, batch); err != nil {
				return saved, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.embeddings.SaveEmbeddings(ctx, batch); err != nil {
			return saved, err
		}
	}

	return saved, nil
}

func requiresOCR(fileType string) bool {
	switch normalizeFileType(fileType) {
	case "pdf", "jpg", "jpeg", "png":
		return true
	}
	return false
}

func sourceKey(doc *domain.Document) string {
	return fmt.Sprintf("documents/%d/%s", doc.ID, doc.FileName)
}
