package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor extracts readable text from HTML documents, skipping
// navigation chrome and script content.
type HTMLExtractor struct{}

func (h *HTMLExtractor) Extract(_ context.Context, content []byte) (string, map[string]string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", nil, &ExtractionError{Format: "html", Message: err.Error()}
	}

	var textBuilder strings.Builder
	var title string
	walkHTML(doc, &textBuilder, &title)

	text := normalizeWhitespace(textBuilder.String())

	metadata := map[string]string{
		"type":       "html",
		"characters": fmt.Sprintf("%d", len(text)),
		"title":      title,
	}
	return text, metadata, nil
}

func walkHTML(n *html.Node, w io.Writer, title *string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "nav", "header", "footer", "aside":
			return
		case "title":
			if *title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				*title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if n.Parent != nil && isBlockElement(n.Parent.Data) {
				fmt.Fprintf(w, "\n%s\n", text)
			} else {
				fmt.Fprintf(w, " %s ", text)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, w, title)
	}
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "blockquote",
		"article", "section", "main", "pre", "td", "th", "dt", "dd":
		return true
	}
	return false
}

// normalizeWhitespace collapses runs of spaces within lines and joins
// non-empty lines with paragraph breaks.
func normalizeWhitespace(text string) string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, strings.Join(strings.Fields(line), " "))
		}
	}
	return strings.Join(cleaned, "\n\n")
}
