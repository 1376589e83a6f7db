package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DOCXExtractor extracts text from Word documents.
type DOCXExtractor struct{}

func (d *DOCXExtractor) Extract(_ context.Context, content []byte) (string, map[string]string, error) {
	metadata := map[string]string{
		"type": "docx",
		"size": fmt.Sprintf("%d", len(content)),
	}

	// DOCX is a ZIP container; check the signature before handing it to
	// the parser.
	if len(content) < 4 || content[0] != 0x50 || content[1] != 0x4B {
		return "", metadata, &ExtractionError{
			Format:  "docx",
			Message: "missing ZIP signature",
		}
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", metadata, &ExtractionError{
			Format:  "docx",
			Message: fmt.Sprintf("parse failed: %v", err),
		}
	}

	text := doc.Editable().GetContent()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)

	metadata["text_length"] = fmt.Sprintf("%d", len(text))
	metadata["word_count"] = fmt.Sprintf("%d", len(strings.Fields(text)))

	if text == "" {
		return "", metadata, &ExtractionError{
			Format:  "docx",
			Message: "document contains no text",
		}
	}
	return text, metadata, nil
}
