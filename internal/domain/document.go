package domain

import (
	"fmt"
	"time"
)

// Visibility controls who can read a document's chunks during retrieval.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// DocumentStatus represents the lifecycle status of a document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusActive     DocumentStatus = "active"
	DocumentStatusError      DocumentStatus = "error"
	DocumentStatusDeleted    DocumentStatus = "deleted"
)

// ProcessingStage represents the current step of the ingestion pipeline
type ProcessingStage string

const (
	StagePending              ProcessingStage = "Pending"
	StageExtractingText       ProcessingStage = "ExtractingText"
	StageTextExtracted        ProcessingStage = "TextExtracted"
	StageUsingOCR             ProcessingStage = "UsingOCR"
	StageOCRExtracted         ProcessingStage = "OCRExtracted"
	StageGeneratingEmbeddings ProcessingStage = "GeneratingEmbeddings"
	StageCompleted            ProcessingStage = "Completed"
	StageExtractionFailed     ProcessingStage = "ExtractionFailed"
	StageNoContentExtracted   ProcessingStage = "NoContentExtracted"
)

const (
	// MaxChunkContentChars bounds the stored length of a single chunk.
	MaxChunkContentChars = 4000

	// PublicChunkLimit caps stored chunks for shared knowledge-base documents.
	PublicChunkLimit = 150
	// PrivateChunkLimit caps stored chunks for user-owned documents.
	PrivateChunkLimit = 100

	summaryPrefixChars = 200
)

// Document represents an uploaded document and its ingestion state
type Document struct {
	ID             int64
	OwnerID        *int64 // nil for system-owned documents
	Title          string
	FileName       string
	FileType       string
	FileSize       int64
	Source         string
	Content        string
	ContentSummary string
	Visibility     Visibility
	Status         DocumentStatus
	Stage          ProcessingStage
	ChunkCount     int
	EmbeddingModel string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessedAt *time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}
	if !isValidVisibility(d.Visibility) {
		return fmt.Errorf("document Visibility is invalid: %s", d.Visibility)
	}
	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}
	return nil
}

// ChunkLimit returns the maximum number of chunks stored for a document
// of the given visibility. Chunks beyond the limit are dropped silently.
func ChunkLimit(v Visibility) int {
	if v == VisibilityPublic {
		return PublicChunkLimit
	}
	return PrivateChunkLimit
}

// Summarize returns the bounded content summary stored on the document.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryPrefixChars {
		return content
	}
	return string(runes[:summaryPrefixChars]) + "..."
}

// stageTransitions holds the allowed ingestion pipeline transitions.
// The error stages are reachable from every extraction step.
var stageTransitions = map[ProcessingStage][]ProcessingStage{
	StagePending:              {StageExtractingText},
	StageExtractingText:       {StageTextExtracted, StageUsingOCR, StageExtractionFailed, StageNoContentExtracted},
	StageTextExtracted:        {StageGeneratingEmbeddings, StageUsingOCR},
	StageUsingOCR:             {StageOCRExtracted, StageExtractionFailed, StageNoContentExtracted},
	StageOCRExtracted:         {StageGeneratingEmbeddings},
	StageGeneratingEmbeddings: {StageCompleted},
	// Re-ingestion re-enters the pipeline from either terminal stage.
	StageCompleted:          {StagePending, StageExtractingText},
	StageExtractionFailed:   {StagePending, StageExtractingText},
	StageNoContentExtracted: {StagePending, StageExtractingText},
}

// CanTransition reports whether the ingestion pipeline may move from one
// stage to the next.
func CanTransition(from, to ProcessingStage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStage reports whether a stage ends the pipeline for a document.
func IsTerminalStage(s ProcessingStage) bool {
	switch s {
	case StageCompleted, StageExtractionFailed, StageNoContentExtracted:
		return true
	}
	return false
}

func isValidVisibility(v Visibility) bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusActive, DocumentStatusError, DocumentStatusDeleted:
		return true
	}
	return false
}
