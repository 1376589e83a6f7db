package expansion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/caia-datachef/internal/backend"
	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
)

// stubBackend replies with a fixed string, or fails every call when err is
// set. It records prompts for assertions and is safe for concurrent use.
type stubBackend struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (s *stubBackend) Complete(ctx context.Context, messages []backend.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, m := range messages {
		if m.Role == "user" {
			s.prompts = append(s.prompts, m.Content)
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestParaphraseStatement(t *testing.T) {
	stub := &stubBackend{reply: "attention weighs token relevance"}
	engine := NewEngine(stub)

	out := engine.Paraphrase(context.Background(), "Attention scores token importance.", nil)

	assert.Equal(t, "Attention weighs token relevance.", out)
	// One generation call plus one verification call.
	assert.Equal(t, 2, stub.callCount())
}

func TestParaphraseQuestionFormPreserved(t *testing.T) {
	stub := &stubBackend{reply: "how does attention weigh tokens"}
	engine := NewEngine(stub)

	out := engine.Paraphrase(context.Background(), "What is attention?", nil)
	assert.True(t, len(out) > 0)
	assert.Equal(t, byte('?'), out[len(out)-1], "paraphrased question must end with ?")
}

func TestParaphraseEmptyInputSkipsBackend(t *testing.T) {
	stub := &stubBackend{reply: "should never be used"}
	engine := NewEngine(stub)

	assert.Equal(t, "", engine.Paraphrase(context.Background(), "", nil))
	assert.Equal(t, "   \t", engine.Paraphrase(context.Background(), "   \t", nil))
	assert.Equal(t, 0, stub.callCount())
}

func TestParaphraseGenerationFailureReturnsOriginal(t *testing.T) {
	stub := &stubBackend{err: &backend.BackendError{Kind: backend.ErrKindConnection, Backend: "stub", Message: "down"}}
	engine := NewEngine(stub)

	original := "the exact original text, untouched"
	out := engine.Paraphrase(context.Background(), original, nil)

	// Fallback is the input verbatim, not a cleaned version of it.
	assert.Equal(t, original, out)
}

func TestParaphraseVerificationFailureKeepsUnverified(t *testing.T) {
	stub := &failSecondBackend{reply: "a faithful rewording"}
	engine := NewEngine(stub)

	out := engine.Paraphrase(context.Background(), "Some statement here.", nil)
	assert.Equal(t, "A faithful rewording.", out)
}

// failSecondBackend succeeds on the generation call and fails verification.
type failSecondBackend struct {
	mu    sync.Mutex
	reply string
	calls int
}

func (f *failSecondBackend) Complete(ctx context.Context, messages []backend.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > 1 {
		return "", errors.New("verification backend down")
	}
	return f.reply, nil
}

func TestParaphrasePromptCarriesReferenceValues(t *testing.T) {
	stub := &stubBackend{reply: "restated"}
	engine := NewEngine(stub)

	refs := map[conversation.Role]string{
		conversation.RoleHuman: "What is attention?",
		conversation.RoleGPT:   "A weighting mechanism.",
	}
	engine.Paraphrase(context.Background(), "A weighting mechanism.", refs)

	require.NotEmpty(t, stub.prompts)
	// Deterministic ordering: gpt before human (sorted).
	assert.Contains(t, stub.prompts[0], "gpt: A weighting mechanism.; human: What is attention?")
}

func TestParaphraseBoilerplateStripped(t *testing.T) {
	stub := &stubBackend{reply: `Verified content: "the rewrite" Note: checked twice`}
	engine := NewEngine(stub)

	out := engine.Paraphrase(context.Background(), "The rewrite.", nil)
	assert.Equal(t, "The rewrite.", out)
}
