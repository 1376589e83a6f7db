package expansion

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Best-effort repair of model output drift. These patterns are an explicit,
// enumerable list of boilerplate the generation and verification prompts
// are known to leak; they are heuristics, not a grammar.
var (
	// Explanatory lead-ins the model prepends despite instructions.
	leadInPattern = regexp.MustCompile(`(?i)^(Generated content:|Verified content:|Corrected version:)\s*`)

	// Trailing meta-commentary appended after the actual text.
	trailerPattern = regexp.MustCompile(`(?i)\s*(Verification result:.*|Reference Command:.*|Note:.*|Verified Response:.*)$`)

	// Stray template placeholders like ___REFERENCE_VALUE___.
	placeholderPattern = regexp.MustCompile(`___[A-Za-z_]+___`)
)

// questionLeads is the closed set of interrogative and auxiliary lead words
// used by question detection. Prefix matching is deliberately naive (no
// word boundary), matching the established heuristic.
var questionLeads = []string{
	"what", "when", "where", "who", "why", "how", "can", "could",
	"would", "should", "is", "are", "do", "does", "will", "may",
}

// IsQuestion reports whether text reads as a question: it ends with '?'
// after trimming, or its lowercase trimmed form starts with one of the
// question lead words. Approximate by design; "Island ferries run daily"
// classifies as a question and that behavior is pinned by tests.
func IsQuestion(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.HasSuffix(t, "?") {
		return true
	}
	for _, lead := range questionLeads {
		if strings.HasPrefix(t, lead) {
			return true
		}
	}
	return false
}

// CleanGenerated strips known boilerplate from generated text and enforces
// sentence shape: leading capital, and terminal punctuation matching the
// question/statement form.
func CleanGenerated(text string, isQuestion bool) string {
	text = leadInPattern.ReplaceAllString(text, "")
	text = trailerPattern.ReplaceAllString(text, "")
	text = placeholderPattern.ReplaceAllString(text, "")

	// Quotes the model wrapped around the whole reply.
	text = strings.Trim(text, `"'`)
	text = strings.TrimSpace(text)

	if text == "" {
		return text
	}

	text = capitalizeFirst(text)
	return enforceTerminal(text, isQuestion)
}

// EnforceQuestionForm fixes terminal punctuation after verification:
// questions must end with '?', statements must not.
func EnforceQuestionForm(text string, isQuestion bool) string {
	if isQuestion && !strings.HasSuffix(text, "?") {
		return text + "?"
	}
	if !isQuestion && strings.HasSuffix(text, "?") {
		return strings.TrimSuffix(text, "?") + "."
	}
	return text
}

func capitalizeFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

func enforceTerminal(text string, isQuestion bool) string {
	if isQuestion {
		if !strings.HasSuffix(text, "?") {
			return text + "?"
		}
		return text
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	switch last {
	case '.', '!', '?':
		return text
	default:
		return text + "."
	}
}
