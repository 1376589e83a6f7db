package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts embedded text from PDF documents. Scanned PDFs with
// no text layer fail with an ExtractionError rather than returning empty
// content.
type PDFExtractor struct {
	MaxPages int
}

func (p *PDFExtractor) Extract(ctx context.Context, content []byte) (string, map[string]string, error) {
	metadata := map[string]string{
		"type": "pdf",
		"size": fmt.Sprintf("%d", len(content)),
	}

	if len(content) < 4 || string(content[:4]) != "%PDF" {
		preview := content
		if len(preview) > 20 {
			preview = preview[:20]
		}
		return "", metadata, &ExtractionError{
			Format:  "pdf",
			Message: fmt.Sprintf("missing %%PDF header, content starts with %q", string(preview)),
		}
	}

	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", metadata, &ExtractionError{
			Format:  "pdf",
			Message: fmt.Sprintf("parse failed: %v", err),
		}
	}

	var textBuilder strings.Builder
	extracted := 0
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", metadata, err
		}
		if p.MaxPages > 0 && extracted >= p.MaxPages {
			break
		}

		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Damaged pages are skipped, the rest of the document is
			// still usable.
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
		extracted++
	}

	text := strings.TrimSpace(textBuilder.String())

	metadata["pages"] = fmt.Sprintf("%d", doc.NumPage())
	metadata["extracted_pages"] = fmt.Sprintf("%d", extracted)
	metadata["text_length"] = fmt.Sprintf("%d", len(text))

	if text == "" {
		return "", metadata, &ExtractionError{
			Format:  "pdf",
			Message: "no extractable text",
		}
	}
	return text, metadata, nil
}
