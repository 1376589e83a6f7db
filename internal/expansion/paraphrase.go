// Package expansion implements the dataset expansion pipeline: paraphrase
// generation with reference-value grounding, verify-then-clean
// post-processing, and batch orchestration under a static/dynamic field
// policy.
package expansion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

const generateSystemPrompt = `You are a paraphrasing assistant. Your task is to rephrase the given text while maintaining its original meaning and incorporating any provided reference values. Do not add any explanatory text or meta-information.`

const verifySystemPrompt = `You are a verification assistant. Your task is to ensure that the paraphrased content maintains the original meaning, format (question or statement), and incorporates the reference values correctly. If the paraphrase is accurate, return it as-is. If not, provide a corrected version.`

// Engine produces verified, cleaned paraphrases of single turns. Backend
// failures never propagate: generation failure falls back to the original
// text, verification failure to the unverified paraphrase. A single bad
// model response must not kill an expansion run.
type Engine struct {
	backend backend.ChatBackend
	logger  zerolog.Logger
}

// NewEngine creates a paraphrase engine on the given chat backend.
func NewEngine(b backend.ChatBackend) *Engine {
	return &Engine{
		backend: b,
		logger:  logging.GetLogger("paraphrase"),
	}
}

// Paraphrase rewrites text, auto-detecting question/statement form.
func (e *Engine) Paraphrase(ctx context.Context, text string, referenceValues map[conversation.Role]string) string {
	return e.ParaphraseWithForm(ctx, text, referenceValues, IsQuestion(text))
}

// ParaphraseWithForm rewrites text with an explicit question flag. Empty or
// whitespace-only input is echoed unchanged without a backend call.
func (e *Engine) ParaphraseWithForm(ctx context.Context, text string, referenceValues map[conversation.Role]string, isQuestion bool) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	paraphrased, err := e.generate(ctx, text, referenceValues, isQuestion)
	if err != nil {
		// Degrade, don't abort: the original text verbatim is the best
		// result available when generation fails.
		e.logger.Warn().Err(err).Msg("Paraphrase generation failed, keeping original text")
		return text
	}

	verified := e.verify(ctx, text, paraphrased, referenceValues, isQuestion)

	return CleanGenerated(verified, isQuestion)
}

func (e *Engine) generate(ctx context.Context, text string, referenceValues map[conversation.Role]string, isQuestion bool) (string, error) {
	userPrompt := fmt.Sprintf(`Original text: %s
Reference values: %s
Is question: %t

Please rephrase the text, maintaining its core meaning and incorporating the reference values where appropriate. If it's a question, keep it as a question. If it's a statement, keep it as a statement. Ensure the paraphrased text is coherent and contextually relevant. Provide only the paraphrased text without any additional explanations or formatting.`,
		text, formatReferenceValues(referenceValues), isQuestion)

	reply, err := e.backend.Complete(ctx, []backend.Message{
		{Role: "system", Content: generateSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// verify asks the backend to confirm or correct the paraphrase, then
// enforces the question/statement terminal punctuation. On backend failure
// the unverified paraphrase is returned.
func (e *Engine) verify(ctx context.Context, original, paraphrased string, referenceValues map[conversation.Role]string, isQuestion bool) string {
	userPrompt := fmt.Sprintf(`Original: %s
Paraphrased: %s
Reference values: %s
Is question: %t

Verify that the paraphrased content maintains the original meaning, format (question or statement), and correctly incorporates the reference values. If it does, return the paraphrased content. If not, provide a corrected version that accurately reflects the original meaning, format, and includes the reference values. Do not include any explanatory text or meta-information in your response.`,
		original, paraphrased, formatReferenceValues(referenceValues), isQuestion)

	reply, err := e.backend.Complete(ctx, []backend.Message{
		{Role: "system", Content: verifySystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("Paraphrase verification failed, keeping unverified paraphrase")
		return paraphrased
	}

	return EnforceQuestionForm(strings.TrimSpace(reply), isQuestion)
}

// formatReferenceValues renders the reference map deterministically so
// prompts (and test fixtures) are reproducible.
func formatReferenceValues(values map[conversation.Role]string) string {
	if len(values) == 0 {
		return "none"
	}
	roles := make([]string, 0, len(values))
	for role := range values {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)

	var b strings.Builder
	for i, role := range roles {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(values[conversation.Role(role)])
	}
	return b.String()
}
