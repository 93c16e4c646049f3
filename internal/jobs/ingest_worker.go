package jobs

import (
	"context"
	"fmt"
	"log"
)

// claimBatchSize limits how many queued uploads one poll picks up.
const claimBatchSize = 10

// PendingDocumentRepository claims queued file uploads for processing.
type PendingDocumentRepository interface {
	ClaimPendingUploads(ctx context.Context, limit int) ([]int64, error)
}

// DocumentIngester runs the ingestion pipeline for one document.
type DocumentIngester interface {
	Process(ctx context.Context, documentID int64) error
}

// IngestWorker drains queued file uploads through the ingestion pipeline.
// Claiming moves a document out of the queue atomically, so concurrent
// workers never pick up the same upload twice.
type IngestWorker struct {
	repo   PendingDocumentRepository
	ingest DocumentIngester
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo PendingDocumentRepository, ingest DocumentIngester) *IngestWorker {
	return &IngestWorker{
		repo:   repo,
		ingest: ingest,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	ids, err := w.repo.ClaimPendingUploads(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending uploads: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	log.Printf("Processing %d queued document uploads", len(ids))

	for _, id := range ids {
		// One document failing must not block the rest of the batch;
		// Process records the failure on the document itself.
		if err := w.ingest.Process(ctx, id); err != nil {
			log.Printf("Error ingesting document %d: %v", id, err)
		}
	}

	return nil
}
