// Package extractor pulls plain text out of source documents (text, HTML,
// PDF, DOCX) so the generation pipeline can build conversations from them.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExtractionError is a non-retryable document processing failure: the input
// is malformed or contains nothing usable. Retrying the same bytes will not
// help.
type ExtractionError struct {
	Format  string
	Message string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction: %s", e.Format, e.Message)
}

// Extractor converts one document format into plain text plus metadata.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (string, map[string]string, error)
}

// Engine routes documents to a format-specific extractor.
type Engine struct {
	extractors map[string]Extractor
}

func NewEngine() *Engine {
	return &Engine{
		extractors: map[string]Extractor{
			"text": &TextExtractor{},
			"txt":  &TextExtractor{},
			"md":   &TextExtractor{},
			"html": &HTMLExtractor{},
			"htm":  &HTMLExtractor{},
			"pdf":  &PDFExtractor{MaxPages: 1000},
			"docx": &DOCXExtractor{},
			"doc":  &DOCXExtractor{}, // best effort, .doc is usually close enough
		},
	}
}

// Extract runs the extractor registered for format. Unknown formats fall
// back to plain text.
func (e *Engine) Extract(ctx context.Context, content []byte, format string) (string, map[string]string, error) {
	ex, ok := e.extractors[strings.ToLower(format)]
	if !ok {
		ex = e.extractors["text"]
	}
	return ex.Extract(ctx, content)
}

// ExtractFile reads path and extracts it according to its extension.
func (e *Engine) ExtractFile(ctx context.Context, path string) (string, map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	text, metadata, err := e.Extract(ctx, content, format)
	if err != nil {
		return "", metadata, err
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["source"] = filepath.Base(path)
	return text, metadata, nil
}

// TextExtractor passes plain text through unchanged.
type TextExtractor struct{}

func (t *TextExtractor) Extract(_ context.Context, content []byte) (string, map[string]string, error) {
	text := string(content)
	metadata := map[string]string{
		"type":       "text",
		"characters": fmt.Sprintf("%d", len(text)),
		"lines":      fmt.Sprintf("%d", strings.Count(text, "\n")+1),
	}
	return text, metadata, nil
}
