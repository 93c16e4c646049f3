package domain

import (
	"crypto/sha256"
	"math"
	"time"
)

// Chunk represents a bounded excerpt of a document, the unit of embedding
// and retrieval. Chunks are immutable once written; re-ingestion replaces
// the full set for a document.
type Chunk struct {
	ID          int64
	DocumentID  int64
	Index       int // zero-based, unique per document
	Content     string
	ContentHash []byte
	TokenCount  int
	CreatedAt   time.Time
}

// NewChunk creates a Chunk with its content fingerprint and token estimate.
func NewChunk(documentID int64, index int, content string, createdAt time.Time) *Chunk {
	return &Chunk{
		DocumentID:  documentID,
		Index:       index,
		Content:     content,
		ContentHash: Fingerprint(content),
		TokenCount:  EstimateTokens(content),
		CreatedAt:   createdAt,
	}
}

// Fingerprint returns the SHA-256 hash of the given text.
func Fingerprint(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

// EstimateTokens approximates the token count of text at 4 characters per token.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(len([]rune(text))) / 4.0))
}
