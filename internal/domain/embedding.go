package domain

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Embedding represents a stored vector for one chunk. The document id is
// carried redundantly so scope queries avoid a join through chunks.
// Re-embedding deactivates rather than deletes superseded rows.
type Embedding struct {
	ID         int64
	ChunkID    int64
	DocumentID int64
	Vector     []float32
	Dimensions int
	ChunkIndex int
	Model      string
	Active     bool
	CreatedAt  time.Time
}

// NewEmbedding creates an active Embedding for a chunk.
func NewEmbedding(chunkID, documentID int64, vector []float32, chunkIndex int, model string, createdAt time.Time) *Embedding {
	return &Embedding{
		ChunkID:    chunkID,
		DocumentID: documentID,
		Vector:     vector,
		Dimensions: len(vector),
		ChunkIndex: chunkIndex,
		Model:      model,
		Active:     true,
		CreatedAt:  createdAt,
	}
}

// EncodeVector serializes a vector as a little-endian array of 32-bit floats.
func EncodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes a little-endian float32 array, validating the
// byte length against the stored dimensionality.
func DecodeVector(data []byte, dimensions int) ([]float32, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("invalid embedding dimensionality: %d", dimensions)
	}
	if len(data) != 4*dimensions {
		return nil, fmt.Errorf("embedding byte length %d does not match dimensionality %d", len(data), dimensions)
	}
	vector := make([]float32, dimensions)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}
