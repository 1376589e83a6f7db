package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
)

type stubBackend struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (s *stubBackend) Complete(_ context.Context, messages []backend.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[0].Content)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestGenerateParsesCleanJSON(t *testing.T) {
	stub := &stubBackend{reply: `[{"from": "human", "value": "What is this about?"}, {"from": "gpt", "value": "It describes attention."}]`}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "Attention is all you need.", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, conversation.RoleHuman, conv[0].From)
	assert.Equal(t, "What is this about?", conv[0].Value)
	assert.Equal(t, conversation.RoleGPT, conv[1].From)
}

func TestGenerateExtractsJSONFromProse(t *testing.T) {
	stub := &stubBackend{reply: "Sure, here is the conversation:\n```json\n" +
		`[{"from": "human", "value": "Q"}, {"from": "gpt", "value": "A"}]` +
		"\n```\nLet me know if you need more."}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "content", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "Q", conv[0].Value)
	assert.Equal(t, "A", conv[1].Value)
}

func TestGenerateRepairsAlmostJSON(t *testing.T) {
	// Quoted "from" keys but bare value keys and single-quoted strings.
	stub := &stubBackend{reply: `[{"from": "human", value: 'Q'}, {"from": "gpt", value: 'A'}]`}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "content", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "Q", conv[0].Value)
	assert.Equal(t, "A", conv[1].Value)
}

func TestGenerateWholeBodyFallback(t *testing.T) {
	// The reply uses role/content keys, so the "from"-anchored pattern
	// misses and the whole body is parsed, then normalized.
	stub := &stubBackend{reply: `[{"role": "user", "content": "Q"}, {"role": "assistant", "content": "A"}]`}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "content", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, conversation.RoleHuman, conv[0].From)
	assert.Equal(t, conversation.RoleGPT, conv[1].From)
}

func TestGenerateUnparseableReply(t *testing.T) {
	stub := &stubBackend{reply: "I cannot produce a conversation for this content."}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "content", DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, conv)
}

func TestGenerateBackendFailure(t *testing.T) {
	stub := &stubBackend{err: errors.New("connection refused")}
	gen := NewGenerator(stub)

	conv, err := gen.Generate(context.Background(), "content", DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, conv)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGeneratePromptContents(t *testing.T) {
	stub := &stubBackend{reply: `[{"from": "human", "value": "Q"}, {"from": "gpt", "value": "A"}]`}
	gen := NewGenerator(stub)

	_, err := gen.Generate(context.Background(), "transformer architectures", Options{
		Turns:        5,
		Context:      "AI research",
		HedgingLevel: HedgingCautious,
	})
	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)

	prompt := stub.prompts[0]
	assert.Contains(t, prompt, "AI research content")
	assert.Contains(t, prompt, "transformer architectures")
	assert.Contains(t, prompt, "exactly 5 turns")
	assert.Contains(t, prompt, "From what I understand")
	assert.Contains(t, prompt, "Return ONLY the JSON array")
}

func TestGeneratePromptTruncatesLongContent(t *testing.T) {
	stub := &stubBackend{reply: `[{"from": "human", "value": "Q"}, {"from": "gpt", "value": "A"}]`}
	gen := NewGenerator(stub)

	long := strings.Repeat("a", maxContentChars) + "TAIL_MARKER"
	_, err := gen.Generate(context.Background(), long, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)
	assert.NotContains(t, stub.prompts[0], "TAIL_MARKER")
}

type sequenceBackend struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	call    int
}

func (s *sequenceBackend) Complete(_ context.Context, _ []backend.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.call
	s.call++
	if s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.replies[i], nil
}

func TestGenerateBatchSkipsFailures(t *testing.T) {
	good := `[{"from": "human", "value": "Q"}, {"from": "gpt", "value": "A"}]`
	stub := &sequenceBackend{
		replies: []string{good, "", good},
		errs:    []error{nil, errors.New("backend down"), nil},
	}
	gen := NewGenerator(stub)

	batch, err := gen.GenerateBatch(context.Background(), []string{"c1", "c2", "c3"}, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestGenerateBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubBackend{reply: `[{"from": "human", "value": "Q"}]`}
	gen := NewGenerator(stub)

	batch, err := gen.GenerateBatch(ctx, []string{"c1", "c2"}, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch)
	assert.Equal(t, 0, stub.calls)
}

func TestChunkTextShortContent(t *testing.T) {
	chunks := ChunkText("short", 2000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestChunkTextPrefersParagraphBoundaries(t *testing.T) {
	content := "Para one text.\n\nPara two text.\n\nPara three text."

	chunks := ChunkText(content, 20, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Para one text.\n\n", chunks[0])
	assert.Equal(t, "Para two text.\n\n", chunks[1])
	assert.Equal(t, "Para three text.", chunks[2])
}

func TestChunkTextOverlapWithoutBoundaries(t *testing.T) {
	content := strings.Repeat("x", 25)

	chunks := ChunkText(content, 10, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 10)
	assert.Len(t, chunks[1], 10)
	assert.Len(t, chunks[2], 9)
}
