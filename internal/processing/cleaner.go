package processing

import (
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// TextCleaner runs a fixed rule sequence over extracted document text.
// Rule order matters: encoding fixes run before whitespace collapsing so
// that replaced characters are cleaned up too.
type TextCleaner struct {
	rules  []Rule
	logger zerolog.Logger
}

// Result reports a cleaning pass.
type Result struct {
	Text         string
	AppliedRules []string
	BytesRemoved int
}

// NewTextCleaner creates a cleaner with the default rule set.
func NewTextCleaner() *TextCleaner {
	return &TextCleaner{
		rules: []Rule{
			&EncodingRule{},
			&URLRule{},
			&EmailRule{},
			&DuplicateLineRule{},
			&WhitespaceRule{},
		},
		logger: logging.GetLogger("processing"),
	}
}

// Clean applies every rule applicable to the source format, in order.
func (tc *TextCleaner) Clean(text, format string) Result {
	original := len(text)
	var applied []string

	for _, rule := range tc.rules {
		if !rule.Applicable(format) {
			continue
		}
		cleaned := rule.Apply(text)
		if cleaned != text {
			applied = append(applied, rule.Name())
			text = cleaned
		}
	}

	removed := original - len(text)
	if removed < 0 {
		removed = 0
	}
	tc.logger.Debug().
		Str("format", format).
		Int("bytes_removed", removed).
		Strs("applied_rules", applied).
		Msg("Cleaned document text")

	return Result{
		Text:         text,
		AppliedRules: applied,
		BytesRemoved: removed,
	}
}
