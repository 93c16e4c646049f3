package service

import (
	"strings"

	"github.com/lexora-ai/lexora/internal/domain"
)

const (
	// DefaultMaxChunkSize is the chunk size budget in characters. A chunk
	// may overflow only when its final sentence does not fit exactly.
	DefaultMaxChunkSize = 800

	// minChunkChars filters noise: chunks at or below this trimmed length
	// are discarded.
	minChunkChars = 10
)

// ChunkText splits raw document text into bounded chunks. Paragraphs are the
// primary unit; oversize paragraphs are re-split on sentence boundaries and
// packed greedily without ever splitting a sentence. The split is
// deterministic and preserves reading order. Empty input yields no chunks.
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, paragraph := range strings.Split(normalized, "\n\n") {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}

		if len([]rune(trimmed)) <= maxChunkSize {
			chunks = append(chunks, trimmed)
			continue
		}

		chunks = append(chunks, packSentences(trimmed, maxChunkSize)...)
	}

	var filtered []string
	for _, chunk := range chunks {
		clean := strings.TrimSpace(chunk)
		if len([]rune(clean)) <= minChunkChars {
			continue
		}
		// A run with no sentence boundaries escapes the packer whole;
		// the storage bound still applies.
		for _, piece := range splitAtBound(clean, domain.MaxChunkContentChars) {
			piece = strings.TrimSpace(piece)
			if len([]rune(piece)) > minChunkChars {
				filtered = append(filtered, piece)
			}
		}
	}
	return filtered
}

// splitAtBound hard-splits text into rune-bounded pieces. Used only when no
// sentence boundary is available to break on.
func splitAtBound(text string, bound int) []string {
	runes := []rune(text)
	if len(runes) <= bound {
		return []string{text}
	}

	var parts []string
	for start := 0; start < len(runes); start += bound {
		end := start + bound
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// packSentences re-splits an oversize paragraph on sentence-terminal
// punctuation and greedily packs sentences into chunks, flushing before a
// sentence that would overflow the budget.
func packSentences(paragraph string, maxChunkSize int) []string {
	sentences := strings.FieldsFunc(paragraph, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '\n':
			return true
		}
		return false
	})

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}

		sentenceLen := len([]rune(trimmed))
		if currentLen+sentenceLen > maxChunkSize && currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if currentLen > 0 {
			current.WriteString(". ")
			currentLen += 2
		}
		current.WriteString(trimmed)
		currentLen += sentenceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
