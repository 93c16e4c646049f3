package service

import (
	"context"
	"fmt"
	"strings"
)

// OCRClient extracts text from scanned or binary source files.
type OCRClient interface {
	ExtractText(ctx context.Context, mimeType string, data []byte) (string, error)
}

// ExtractResult carries extracted text and how it was obtained.
type ExtractResult struct {
	Text    string
	UsedOCR bool
}

// Extractor turns uploaded source files into plain text. Text formats are
// read directly; scanned formats go through the provider's OCR.
type Extractor struct {
	ocr OCRClient
}

// NewExtractor creates a new Extractor instance
func NewExtractor(ocr OCRClient) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract returns the plain text of a source file. An empty Text with a nil
// error means no content could be obtained from the file.
func (e *Extractor) Extract(ctx context.Context, fileType string, data []byte) (ExtractResult, error) {
	switch normalizeFileType(fileType) {
	case "txt", "md":
		return ExtractResult{Text: strings.TrimSpace(string(data))}, nil
	case "pdf", "jpg", "jpeg", "png":
		if e.ocr == nil {
			return ExtractResult{UsedOCR: true}, fmt.Errorf("no OCR client configured for %s files", fileType)
		}
		text, err := e.ocr.ExtractText(ctx, mimeTypeFor(fileType), data)
		if err != nil {
			return ExtractResult{UsedOCR: true}, err
		}
		return ExtractResult{Text: strings.TrimSpace(text), UsedOCR: true}, nil
	default:
		return ExtractResult{}, nil
	}
}

func normalizeFileType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

func mimeTypeFor(fileType string) string {
	switch normalizeFileType(fileType) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
