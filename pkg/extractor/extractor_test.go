package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractorRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"empty content", []byte{}},
		{"nil content", nil},
		{"not a pdf", []byte("This is not a PDF file")},
	}

	extractor := &PDFExtractor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, metadata, err := extractor.Extract(context.Background(), tt.content)
			require.Error(t, err)
			assert.Empty(t, text)
			assert.Equal(t, "pdf", metadata["type"])

			var exErr *ExtractionError
			assert.True(t, errors.As(err, &exErr))
		})
	}
}

func TestDOCXExtractorRejectsNonZip(t *testing.T) {
	extractor := &DOCXExtractor{}

	text, metadata, err := extractor.Extract(context.Background(), []byte("plain text, no zip"))
	require.Error(t, err)
	assert.Empty(t, text)
	assert.Equal(t, "docx", metadata["type"])

	var exErr *ExtractionError
	require.True(t, errors.As(err, &exErr))
	assert.Contains(t, exErr.Error(), "ZIP signature")
}

func TestHTMLExtractor(t *testing.T) {
	input := `<html><head><title>Paper Title</title><style>p{color:red}</style></head>
<body><nav>Skip this</nav>
<h1>Attention</h1>
<p>First   paragraph with    extra spaces.</p>
<script>alert("noise")</script>
<p>Second paragraph.</p>
</body></html>`

	extractor := &HTMLExtractor{}
	text, metadata, err := extractor.Extract(context.Background(), []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "Paper Title", metadata["title"])
	assert.Contains(t, text, "Attention")
	assert.Contains(t, text, "First paragraph with extra spaces.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "Skip this")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestTextExtractor(t *testing.T) {
	extractor := &TextExtractor{}

	text, metadata, err := extractor.Extract(context.Background(), []byte("line one\nline two"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
	assert.Equal(t, "2", metadata["lines"])
}

func TestEngineUnknownFormatFallsBackToText(t *testing.T) {
	engine := NewEngine()

	text, metadata, err := engine.Extract(context.Background(), []byte("raw bytes"), "weird")
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", text)
	assert.Equal(t, "text", metadata["type"])
}

func TestEngineExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("paper body"), 0644))

	engine := NewEngine()
	text, metadata, err := engine.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "paper body", text)
	assert.Equal(t, "paper.txt", metadata["source"])
}

func TestEngineExtractFileMissing(t *testing.T) {
	engine := NewEngine()

	_, _, err := engine.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
