// Package generation turns extracted document text into synthetic
// conversations by prompting a chat backend and parsing its JSON reply.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// Hedging levels control how much uncertainty the assistant side of a
// generated conversation expresses.
const (
	HedgingConfident = "confident"
	HedgingBalanced  = "balanced"
	HedgingCautious  = "cautious"
)

// maxContentChars bounds how much source text is embedded in the prompt.
const maxContentChars = 2000

// jsonArrayPattern finds a conversation-shaped JSON array anywhere in a
// model reply, tolerating surrounding prose or markdown fences.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[\s*\{\s*"from":.+\}\s*\]`)

// bareKeyPattern quotes unquoted object keys during the repair pass for
// almost-JSON replies.
var bareKeyPattern = regexp.MustCompile(`(\w+):`)

var hedgingInstructions = map[string]string{
	HedgingConfident: `For AI assistant responses, use confident language with minimal hedging:
- Use phrases like "This is..." rather than "I think this might be..."
- Make direct statements about the content
- Acknowledge limitations, but emphasize what is known with confidence
- Avoid excessive qualifiers like "perhaps", "maybe", "possibly"`,

	HedgingBalanced: `For AI assistant responses, use balanced hedging appropriate to the confidence level:
- Use phrases like "Based on the content..." or "It appears that..."
- Express appropriate uncertainty when information is incomplete
- Acknowledge limitations while still providing helpful information
- Use natural, conversational hedging that doesn't undermine expertise`,

	HedgingCautious: `For AI assistant responses, use careful hedging to express appropriate caution:
- Use phrases like "From what I understand..." or "It seems possible that..."
- Explicitly acknowledge limitations of knowledge
- Make clear when you're making educated guesses vs. stating facts
- Offer multiple perspectives or interpretations when appropriate
- Use qualifiers like "likely", "possibly", "it appears" appropriately`,
}

// Options configures a single conversation generation.
type Options struct {
	// Turns is the number of human/assistant exchanges to ask for.
	Turns int

	// Context steers the topic framing, e.g. "research" or "AI research".
	Context string

	// HedgingLevel is one of the Hedging* constants. Unknown values fall
	// back to balanced; empty disables hedging instructions.
	HedgingLevel string
}

// DefaultOptions matches the pipeline's usual settings.
func DefaultOptions() Options {
	return Options{
		Turns:        3,
		Context:      "research",
		HedgingLevel: HedgingBalanced,
	}
}

// Generator produces conversations about source content.
type Generator struct {
	backend backend.ChatBackend
	logger  zerolog.Logger
}

// NewGenerator creates a generator over the given chat backend.
func NewGenerator(b backend.ChatBackend) *Generator {
	return &Generator{
		backend: b,
		logger:  logging.GetLogger("generation"),
	}
}

// Generate prompts the backend for a conversation about content and parses
// the reply. It returns nil with an error when the backend fails or the
// reply cannot be coerced into a valid conversation; callers treat nil as
// "skip this chunk".
func (g *Generator) Generate(ctx context.Context, content string, opts Options) (conversation.Conversation, error) {
	if opts.Turns < 1 {
		opts.Turns = 1
	}
	if opts.Context == "" {
		opts.Context = "research"
	}

	prompt := g.buildPrompt(content, opts)

	reply, err := g.backend.Complete(ctx, []backend.Message{
		{Role: "system", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generating conversation: %w", err)
	}

	conv, err := parseConversation(reply)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to parse generated conversation")
		return nil, err
	}
	return conv, nil
}

func (g *Generator) buildPrompt(content string, opts Options) string {
	truncated := content
	if len(truncated) > maxContentChars {
		truncated = truncated[:maxContentChars]
	}

	hedging := ""
	if opts.HedgingLevel != "" {
		instr, ok := hedgingInstructions[opts.HedgingLevel]
		if !ok {
			instr = hedgingInstructions[HedgingBalanced]
		}
		hedging = instr
	}

	return fmt.Sprintf(`You are an assistant helping to create synthetic training data.
Generate a realistic conversation between a human and an AI assistant about the following %s content:

%s

The conversation should:
1. Include exactly %d turns (human question, AI response).
2. Be related to the content provided.
3. Show the human asking questions and the AI providing helpful responses.
4. Format the output as a JSON list with "from" (either "human" or "gpt") and "value" fields.

%s

Return ONLY the JSON array without explanations or markdown formatting.`,
		opts.Context, truncated, opts.Turns, hedging)
}

// parseConversation extracts and validates the JSON conversation from a
// model reply. It tries, in order: the embedded-array regex, a repair pass
// over that match (quote bare keys, convert single quotes), and finally
// parsing the whole reply body.
func parseConversation(reply string) (conversation.Conversation, error) {
	if match := jsonArrayPattern.FindString(reply); match != "" {
		var raw []any
		if err := json.Unmarshal([]byte(match), &raw); err == nil {
			return conversation.ValidateRaw(raw)
		}

		repaired := bareKeyPattern.ReplaceAllString(match, `"${1}":`)
		repaired = strings.ReplaceAll(repaired, "'", `"`)
		var raw2 []any
		if err := json.Unmarshal([]byte(repaired), &raw2); err != nil {
			return nil, fmt.Errorf("parsing conversation JSON after repair: %w", err)
		}
		return conversation.ValidateRaw(raw2)
	}

	var raw []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &raw); err != nil {
		return nil, fmt.Errorf("no conversation JSON found in reply")
	}
	return conversation.ValidateRaw(raw)
}

// GenerateBatch generates one conversation per content chunk, skipping
// chunks that fail, and returns the successes in input order. The batch ID
// only labels log lines.
func (g *Generator) GenerateBatch(ctx context.Context, chunks []string, opts Options) (conversation.Batch, error) {
	batchID := uuid.New().String()
	logger := g.logger.With().Str("batch_id", batchID).Logger()

	var batch conversation.Batch
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		logger.Info().Int("chunk", i+1).Int("total", len(chunks)).Msg("Generating conversation")
		conv, err := g.Generate(ctx, chunk, opts)
		if err != nil {
			logger.Warn().Err(err).Int("chunk", i).Msg("Skipping chunk after generation failure")
			continue
		}
		batch = append(batch, conv)
	}

	logger.Info().
		Int("generated", len(batch)).
		Int("chunks", len(chunks)).
		Msg("Batch generation complete")
	return batch, nil
}

// chunkBoundaries are tried in order when splitting content; earlier
// entries are stronger break points.
var chunkBoundaries = []string{"\n\n", "\n", ". ", "? ", "! "}

// ChunkText splits content into chunks of at most size bytes with the given
// overlap, preferring to break at paragraph or sentence boundaries.
func ChunkText(content string, size, overlap int) []string {
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if len(content) <= size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := start + size
		if end >= len(content) {
			chunks = append(chunks, content[start:])
			break
		}

		for _, boundary := range chunkBoundaries {
			if pos := strings.LastIndex(content[start:end], boundary); pos > 0 {
				end = start + pos + len(boundary)
				break
			}
		}

		chunks = append(chunks, content[start:end])

		// Guard against a boundary so close to start that the overlap
		// would walk backwards.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}
