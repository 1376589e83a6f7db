package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/internal/dataset"
	"github.com/Caia-Tech/caia-datachef/internal/expansion"
	"github.com/Caia-Tech/caia-datachef/internal/generation"
	"github.com/Caia-Tech/caia-datachef/internal/processing"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/extractor"
	"github.com/Caia-Tech/caia-datachef/pkg/logging"
	"github.com/Caia-Tech/caia-datachef/pkg/pipeline"
)

// Runner drives a full dataset run: extract input documents, generate seed
// conversations, expand them, and persist the result.
type Runner struct {
	config    *pipeline.Config
	extractor *extractor.Engine
	cleaner   *processing.TextCleaner
	generator *generation.Generator
	expander  *expansion.Expander
	store     *dataset.Store
	events    *EventBus
	logger    zerolog.Logger
}

// RunResult summarizes one completed dataset run.
type RunResult struct {
	RunID         string            `json:"run_id"`
	Documents     int               `json:"documents"`
	Chunks        int               `json:"chunks"`
	Seed          int               `json:"seed_conversations"`
	Expanded      int               `json:"expanded_conversations"`
	Skipped       int               `json:"skipped_conversations"`
	Files         map[string]string `json:"files"`
	Duration      time.Duration     `json:"duration"`
	ExpandedBatch conversation.Batch `json:"-"`
}

// NewRunner wires a runner from its components. The event bus may be nil
// when no one is listening.
func NewRunner(cfg *pipeline.Config, ex *extractor.Engine, gen *generation.Generator, exp *expansion.Expander, store *dataset.Store, events *EventBus) *Runner {
	return &Runner{
		config:    cfg,
		extractor: ex,
		cleaner:   processing.NewTextCleaner(),
		generator: gen,
		expander:  exp,
		store:     store,
		events:    events,
		logger:    logging.GetLogger("runner"),
	}
}

func (r *Runner) publish(event *Event) {
	if r.events == nil {
		return
	}
	// Progress events are advisory; a full buffer must not stall the run.
	_ = r.events.Publish(event)
}

// Run executes the pipeline over the given input files and saves the
// expanded dataset under baseName in each requested format.
func (r *Runner) Run(ctx context.Context, inputPaths []string, baseName string, formats []string) (*RunResult, error) {
	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	// Extraction.
	r.publish(NewEvent(EventExtractionStarted, runID).WithMetadata("documents", len(inputPaths)))

	var chunks []string
	extracted := 0
	for _, path := range inputPaths {
		text, metadata, err := r.extractor.ExtractFile(ctx, path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Skipping document after extraction failure")
			continue
		}
		extracted++
		cleaned := r.cleaner.Clean(text, metadata["type"])
		chunks = append(chunks, generation.ChunkText(cleaned.Text, r.config.Generation.ChunkSize, r.config.Generation.ChunkOverlap)...)
	}
	if len(chunks) == 0 {
		err := fmt.Errorf("no usable text extracted from %d input files", len(inputPaths))
		r.publish(NewEvent(EventStageFailed, runID).WithMetadata("stage", "extraction"))
		return nil, err
	}
	r.publish(NewEvent(EventExtractionCompleted, runID).
		WithMetadata("documents", extracted).
		WithMetadata("chunks", len(chunks)))

	// Generation.
	r.publish(NewEvent(EventGenerationStarted, runID).WithMetadata("chunks", len(chunks)))
	seed, err := r.generator.GenerateBatch(ctx, chunks, generation.Options{
		Turns:        r.config.Generation.Turns,
		Context:      r.config.Generation.Context,
		HedgingLevel: r.config.Generation.HedgingLevel,
	})
	if err != nil {
		r.publish(NewEvent(EventStageFailed, runID).WithMetadata("stage", "generation"))
		return nil, fmt.Errorf("generation: %w", err)
	}
	if len(seed) == 0 {
		r.publish(NewEvent(EventStageFailed, runID).WithMetadata("stage", "generation"))
		return nil, fmt.Errorf("no conversations generated from %d chunks", len(chunks))
	}
	r.publish(NewEvent(EventGenerationCompleted, runID).WithMetadata("conversations", len(seed)))

	// Expansion.
	r.publish(NewEvent(EventExpansionStarted, runID).
		WithMetadata("conversations", len(seed)).
		WithMetadata("factor", r.config.Expansion.Factor))

	staticPolicy := rolePolicy(r.config.Expansion.StaticFields)
	referenceFields := conversation.NewReferenceFieldSet(roleSlice(r.config.Expansion.ReferenceFields)...)

	expanded, report, err := r.expander.Expand(ctx, seed, r.config.Expansion.Factor, staticPolicy, referenceFields)
	if err != nil {
		r.publish(NewEvent(EventStageFailed, runID).WithMetadata("stage", "expansion"))
		return nil, fmt.Errorf("expansion: %w", err)
	}
	r.publish(NewEvent(EventExpansionCompleted, runID).
		WithMetadata("expanded", report.Expanded).
		WithMetadata("skipped", report.Skipped))

	// Persistence.
	out, err := r.store.SaveAll(expanded, baseName, formats)
	if err != nil {
		r.publish(NewEvent(EventStageFailed, runID).WithMetadata("stage", "persistence"))
		return nil, fmt.Errorf("saving dataset: %w", err)
	}
	for format, path := range out.Files {
		r.publish(NewEvent(EventDatasetSaved, runID).
			WithMetadata("format", format).
			WithMetadata("path", path))
	}

	result := &RunResult{
		RunID:         runID,
		Documents:     extracted,
		Chunks:        len(chunks),
		Seed:          len(seed),
		Expanded:      report.Expanded,
		Skipped:       report.Skipped,
		Files:         out.Files,
		Duration:      time.Since(start),
		ExpandedBatch: expanded,
	}

	logger.Info().
		Int("documents", result.Documents).
		Int("seed", result.Seed).
		Int("expanded", result.Expanded).
		Dur("duration", result.Duration).
		Msg("Dataset run complete")
	return result, nil
}

// ExpandOnly runs just the expansion stage over already-formed
// conversations, as the API's expand endpoint does.
func (r *Runner) ExpandOnly(ctx context.Context, convs conversation.Batch, factor int) (conversation.Batch, expansion.Report, error) {
	staticPolicy := rolePolicy(r.config.Expansion.StaticFields)
	referenceFields := conversation.NewReferenceFieldSet(roleSlice(r.config.Expansion.ReferenceFields)...)
	return r.expander.Expand(ctx, convs, factor, staticPolicy, referenceFields)
}

// ExpandRawOnly expands raw turn-like records, skipping any conversation
// that fails structural validation.
func (r *Runner) ExpandRawOnly(ctx context.Context, raw [][]map[string]any, factor int) (conversation.Batch, expansion.Report, error) {
	staticPolicy := rolePolicy(r.config.Expansion.StaticFields)
	referenceFields := conversation.NewReferenceFieldSet(roleSlice(r.config.Expansion.ReferenceFields)...)
	return r.expander.ExpandRaw(ctx, raw, factor, staticPolicy, referenceFields)
}

// Store exposes the runner's dataset store.
func (r *Runner) Store() *dataset.Store {
	return r.store
}

func rolePolicy(fields []string) conversation.StaticFieldPolicy {
	if len(fields) == 0 {
		return nil
	}
	policy := make(conversation.StaticFieldPolicy, len(fields))
	for _, f := range fields {
		policy[conversation.Role(f)] = true
	}
	return policy
}

func roleSlice(fields []string) []conversation.Role {
	roles := make([]conversation.Role, len(fields))
	for i, f := range fields {
		roles[i] = conversation.Role(f)
	}
	return roles
}
