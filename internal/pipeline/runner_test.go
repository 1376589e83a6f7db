package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/internal/dataset"
	"github.com/Caia-Tech/caia-datachef/internal/expansion"
	"github.com/Caia-Tech/caia-datachef/internal/generation"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
	"github.com/Caia-Tech/caia-datachef/pkg/extractor"
	"github.com/Caia-Tech/caia-datachef/pkg/pipeline"
)

// pipelineBackend answers generation prompts with a canned conversation
// and paraphrase prompts with a canned rewrite.
type pipelineBackend struct {
	mu    sync.Mutex
	calls int
}

func (p *pipelineBackend) Complete(_ context.Context, messages []backend.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(messages) > 0 && strings.Contains(messages[0].Content, "synthetic training data") {
		return `[{"from": "human", "value": "What is the topic?"}, {"from": "gpt", "value": "The topic is attention."}]`, nil
	}
	return "A rephrased turn.", nil
}

func newTestRunner(t *testing.T, chat backend.ChatBackend, factor int) *Runner {
	t.Helper()

	cfg := pipeline.DefaultConfig()
	cfg.Expansion.Factor = factor
	cfg.Expansion.Workers = 2

	store, err := dataset.NewStore(t.TempDir())
	require.NoError(t, err)

	return NewRunner(
		cfg,
		extractor.NewEngine(),
		generation.NewGenerator(chat),
		expansion.NewExpander(expansion.NewEngine(chat), cfg.Expansion.Workers),
		store,
		nil,
	)
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunnerFullPipeline(t *testing.T) {
	runner := newTestRunner(t, &pipelineBackend{}, 2)
	input := writeInput(t, "paper.txt", "Attention mechanisms weight distant tokens directly, without recurrence.")

	result, err := runner.Run(context.Background(), []string{input}, "train", []string{"jsonl", "csv"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 1, result.Seed)
	assert.Equal(t, 2, result.Expanded)
	assert.Equal(t, 0, result.Skipped)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.ExpandedBatch, 2)

	// The saved JSONL must round-trip to the expanded batch.
	loaded, err := runner.Store().LoadJSONL(result.Files["jsonl"])
	require.NoError(t, err)
	assert.Equal(t, result.ExpandedBatch, loaded)

	_, err = os.Stat(result.Files["csv"])
	assert.NoError(t, err)
}

func TestRunnerSkipsUnreadableDocuments(t *testing.T) {
	runner := newTestRunner(t, &pipelineBackend{}, 1)
	good := writeInput(t, "good.txt", "Readable content about transformers.")
	missing := filepath.Join(t.TempDir(), "missing.txt")

	result, err := runner.Run(context.Background(), []string{missing, good}, "train", []string{"jsonl"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)
}

func TestRunnerFailsWithNoUsableInput(t *testing.T) {
	runner := newTestRunner(t, &pipelineBackend{}, 1)
	missing := filepath.Join(t.TempDir(), "missing.txt")

	_, err := runner.Run(context.Background(), []string{missing}, "train", []string{"jsonl"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable text")
}

func TestRunnerPublishesEvents(t *testing.T) {
	events := NewEventBus(64, 1)
	defer events.Close()

	var mu sync.Mutex
	seen := make(map[EventType]int)
	_, err := events.Subscribe([]EventType{
		EventExtractionStarted, EventExtractionCompleted,
		EventGenerationStarted, EventGenerationCompleted,
		EventExpansionStarted, EventExpansionCompleted,
		EventDatasetSaved,
	}, func(_ context.Context, event *Event) error {
		mu.Lock()
		seen[event.Type]++
		mu.Unlock()
		return nil
	}, 16)
	require.NoError(t, err)

	runner := newTestRunner(t, &pipelineBackend{}, 1)
	runner.events = events

	input := writeInput(t, "paper.txt", "Short research content.")
	_, err = runner.Run(context.Background(), []string{input}, "train", []string{"jsonl"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[EventExtractionCompleted] == 1 &&
			seen[EventGenerationCompleted] == 1 &&
			seen[EventExpansionCompleted] == 1 &&
			seen[EventDatasetSaved] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerExpandOnly(t *testing.T) {
	runner := newTestRunner(t, &pipelineBackend{}, 1)

	source := conversation.Batch{
		{
			{From: conversation.RoleHuman, Value: "What is X?"},
			{From: conversation.RoleGPT, Value: "X is Y."},
		},
	}

	expanded, report, err := runner.ExpandOnly(context.Background(), source, 3)
	require.NoError(t, err)
	assert.Len(t, expanded, 3)
	assert.Equal(t, 3, report.Expanded)
}
