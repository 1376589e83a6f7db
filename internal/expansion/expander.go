package expansion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// Report summarizes an expansion batch. Batches never abort because of one
// item: structurally invalid conversations are counted and skipped.
type Report struct {
	Expanded int `json:"expanded"`
	Skipped  int `json:"skipped"`

	Duration time.Duration `json:"duration"`
}

// Expander drives paraphrasing across a batch of conversations under a
// static/dynamic field policy. Conversation-expansion tasks are independent
// and run on a bounded worker pool; result position is keyed by
// (original index, repeat index), never by completion order.
type Expander struct {
	engine  *Engine
	workers int
	logger  zerolog.Logger
}

// NewExpander creates an expander running at most workers concurrent
// conversation expansions. workers < 1 means sequential.
func NewExpander(engine *Engine, workers int) *Expander {
	if workers < 1 {
		workers = 1
	}
	return &Expander{
		engine:  engine,
		workers: workers,
		logger:  logging.GetLogger("expander"),
	}
}

// Expand produces factor paraphrased variants of every conversation. All
// variants of conversation 0 precede those of conversation 1, and so on.
//
// Cancellation is cooperative and takes effect between conversation
// boundaries: work already completed when ctx is cancelled is returned,
// not discarded.
func (ex *Expander) Expand(
	ctx context.Context,
	conversations []conversation.Conversation,
	factor int,
	staticPolicy conversation.StaticFieldPolicy,
	referenceFields conversation.ReferenceFieldSet,
) (conversation.Batch, Report, error) {
	start := time.Now()

	if factor < 1 {
		return nil, Report{}, fmt.Errorf("expansion factor must be positive, got %d", factor)
	}
	if staticPolicy == nil {
		staticPolicy = conversation.StaticFieldPolicy{}
	}
	if referenceFields == nil {
		referenceFields = conversation.ReferenceFieldSet{}
	}

	// Slots are pre-keyed by (original index, repeat index) so concurrent
	// completion cannot reorder results. Unfilled slots (skipped or
	// cancelled conversations) are compacted away at the end.
	slots := make([]conversation.Conversation, len(conversations)*factor)

	semaphore := make(chan struct{}, ex.workers)
	var wg sync.WaitGroup

	skipped := 0

dispatch:
	for i, conv := range conversations {
		select {
		case <-ctx.Done():
			ex.logger.Info().
				Int("dispatched", i).
				Int("total", len(conversations)).
				Msg("Expansion cancelled, returning partial results")
			break dispatch
		default:
		}

		validated := conversation.Validate(conv)
		if len(validated) == 0 {
			ex.logger.Error().
				Int("conversation", i).
				Msg("Skipping empty conversation")
			skipped++
			continue
		}

		// The original is immutable during expansion, so reference values
		// are identical across repeats and extracted once.
		referenceValues := validated.ReferenceValues(referenceFields)

		for j := 0; j < factor; j++ {
			// Acquire before dispatch: bounds in-flight work and makes the
			// per-conversation ctx check above the effective cancellation
			// point. A cancel that lands mid-conversation lets the current
			// conversation's variants finish.
			semaphore <- struct{}{}
			wg.Add(1)
			go func(slot int, source conversation.Conversation) {
				defer wg.Done()
				defer func() { <-semaphore }()

				slots[slot] = ex.expandOne(ctx, source, staticPolicy, referenceValues)
			}(i*factor+j, validated)
		}
	}

	wg.Wait()

	results := make(conversation.Batch, 0, len(slots))
	for _, expanded := range slots {
		if expanded != nil {
			results = append(results, expanded)
		}
	}

	report := Report{
		Expanded: len(results),
		Skipped:  skipped,
		Duration: time.Since(start),
	}

	ex.logger.Info().
		Int("input_conversations", len(conversations)).
		Int("expansion_factor", factor).
		Int("expanded", report.Expanded).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Expansion batch completed")

	return results, report, nil
}

// expandOne produces one variant: static turns are copied byte-identical,
// dynamic turns go through the paraphrase engine.
func (ex *Expander) expandOne(
	ctx context.Context,
	source conversation.Conversation,
	staticPolicy conversation.StaticFieldPolicy,
	referenceValues map[conversation.Role]string,
) conversation.Conversation {
	expanded := make(conversation.Conversation, 0, len(source))
	for _, turn := range source {
		if staticPolicy.IsStatic(turn.From) {
			expanded = append(expanded, turn)
			continue
		}
		expanded = append(expanded, conversation.Turn{
			From:  turn.From,
			Value: ex.engine.Paraphrase(ctx, turn.Value, referenceValues),
		})
	}
	return expanded
}

// ExpandRaw validates raw turn-like records before expansion. A
// conversation that fails validation is reported, skipped, and the batch
// continues with the next.
func (ex *Expander) ExpandRaw(
	ctx context.Context,
	raw [][]map[string]any,
	factor int,
	staticPolicy conversation.StaticFieldPolicy,
	referenceFields conversation.ReferenceFieldSet,
) (conversation.Batch, Report, error) {
	validated := make([]conversation.Conversation, 0, len(raw))
	invalid := 0
	for i, rawConv := range raw {
		turns := make([]any, len(rawConv))
		for k, t := range rawConv {
			turns[k] = t
		}
		conv, err := conversation.ValidateRaw(turns)
		if err != nil {
			ex.logger.Error().
				Err(err).
				Int("conversation", i).
				Msg("Skipping structurally invalid conversation")
			invalid++
			continue
		}
		validated = append(validated, conv)
	}

	batch, report, err := ex.Expand(ctx, validated, factor, staticPolicy, referenceFields)
	report.Skipped += invalid
	return batch, report, err
}
