// Package processing cleans extracted document text before it is chunked
// and fed to conversation generation. Training data inherits every artifact
// of its source, so encoding junk, boilerplate URLs, and duplicated lines
// are scrubbed here.
package processing

import (
	"regexp"
	"strings"
	"unicode"
)

// Rule is one text cleanup step.
type Rule interface {
	Name() string
	// Applicable reports whether the rule should run for a source format
	// ("text", "html", "pdf", "docx").
	Applicable(format string) bool
	Apply(text string) string
}

// WhitespaceRule collapses runs of spaces and tabs while preserving
// paragraph breaks.
type WhitespaceRule struct{}

var (
	spaceRunPattern  = regexp.MustCompile(`[ \t]+`)
	blankLinePattern = regexp.MustCompile(`\n{3,}`)
)

func (r *WhitespaceRule) Name() string             { return "whitespace" }
func (r *WhitespaceRule) Applicable(_ string) bool { return true }
func (r *WhitespaceRule) Apply(text string) string {
	cleaned := spaceRunPattern.ReplaceAllString(text, " ")
	cleaned = blankLinePattern.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// EncodingRule fixes mojibake, smart punctuation, and stray control
// characters that PDF extraction often leaves behind.
type EncodingRule struct{}

var encodingReplacer = strings.NewReplacer(
	"â€™", "'", // mojibake right single quote
	"â€œ", "\"", // mojibake left double quote
	"â€", "\"", // mojibake right double quote
	"Â ", " ", // mojibake non-breaking space
	"\uFEFF", "", // BOM
	" ", " ", // non-breaking space
	"​", "", // zero-width space
	"‘", "'",
	"’", "'",
	"“", "\"",
	"”", "\"",
	"–", "-", // en dash
	"—", "-", // em dash
)

func (r *EncodingRule) Name() string             { return "encoding" }
func (r *EncodingRule) Applicable(_ string) bool { return true }
func (r *EncodingRule) Apply(text string) string {
	cleaned := encodingReplacer.Replace(text)
	return strings.Map(func(ch rune) rune {
		if unicode.IsControl(ch) && ch != '\n' && ch != '\t' && ch != '\r' {
			return -1
		}
		return ch
	}, cleaned)
}

// URLRule replaces URLs with a placeholder so generated conversations do
// not quote links verbatim.
type URLRule struct{}

var urlPattern = regexp.MustCompile(`(?:https?://|ftp://|www\.)[^\s<>"{}|\\^` + "`" + `\[\]]+`)

func (r *URLRule) Name() string { return "url" }

// HTML extraction already drops anchors; URLs mostly survive in plain text
// and PDF sources.
func (r *URLRule) Applicable(format string) bool {
	return format != "html"
}
func (r *URLRule) Apply(text string) string {
	return urlPattern.ReplaceAllString(text, "[URL]")
}

// EmailRule replaces email addresses with a placeholder.
type EmailRule struct{}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func (r *EmailRule) Name() string             { return "email" }
func (r *EmailRule) Applicable(_ string) bool { return true }
func (r *EmailRule) Apply(text string) string {
	return emailPattern.ReplaceAllString(text, "[EMAIL]")
}

// DuplicateLineRule drops consecutive duplicate lines, a common artifact
// of PDF headers and footers repeating on every page.
type DuplicateLineRule struct{}

func (r *DuplicateLineRule) Name() string             { return "duplicate_lines" }
func (r *DuplicateLineRule) Applicable(_ string) bool { return true }
func (r *DuplicateLineRule) Apply(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return text
	}

	result := make([]string, 0, len(lines))
	last := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != last || trimmed == "" {
			result = append(result, line)
		}
		last = trimmed
	}
	return strings.Join(result, "\n")
}
