package service

import (
	"math"
	"sort"
)

const (
	// RelevanceThreshold is the minimum cosine similarity (exclusive) a
	// candidate must reach to appear in search results.
	RelevanceThreshold = 0.45

	// TopKResults bounds the number of ranked results returned per search.
	TopKResults = 3
)

// Candidate is one embedding considered by a similarity search.
type Candidate struct {
	Vector        []float32
	Content       string
	DocumentID    int64
	DocumentTitle string
	ChunkIndex    int
}

// RankedResult is a candidate that cleared the relevance threshold.
type RankedResult struct {
	Content       string
	Score         float64
	DocumentID    int64
	DocumentTitle string
	ChunkIndex    int
}

// CosineSimilarity scores the angular closeness of two vectors in [-1, 1].
// Mismatched lengths, empty vectors, and zero magnitudes all score 0 rather
// than failing.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA*magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// RankCandidates scores candidates against the query vector and returns the
// top results above the relevance threshold, highest first. Ties keep the
// original candidate order. An empty result is a valid outcome meaning the
// caller should fall back to other context sources.
func RankCandidates(queryVector []float32, candidates []Candidate) []RankedResult {
	if len(queryVector) == 0 {
		return nil
	}

	results := make([]RankedResult, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(queryVector, c.Vector)
		if score <= RelevanceThreshold {
			continue
		}
		results = append(results, RankedResult{
			Content:       c.Content,
			Score:         score,
			DocumentID:    c.DocumentID,
			DocumentTitle: c.DocumentTitle,
			ChunkIndex:    c.ChunkIndex,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > TopKResults {
		results = results[:TopKResults]
	}
	return results
}
