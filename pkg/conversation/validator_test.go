package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRawAliasNormalization(t *testing.T) {
	raw := []any{
		map[string]any{"role": "assistant", "content": "X"},
	}

	conv, err := ValidateRaw(raw)
	require.NoError(t, err)
	require.Len(t, conv, 1)

	assert.Equal(t, RoleGPT, conv[0].From)
	assert.Equal(t, "X", conv[0].Value)
}

func TestValidateRawRoleAliases(t *testing.T) {
	tests := []struct {
		name string
		turn map[string]any
		pos  int
		want Role
	}{
		{"assistant", map[string]any{"role": "assistant", "value": "a"}, 0, RoleGPT},
		{"ai", map[string]any{"role": "AI", "value": "a"}, 0, RoleGPT},
		{"bot", map[string]any{"role": "bot", "value": "a"}, 0, RoleGPT},
		{"claude", map[string]any{"role": "Claude", "value": "a"}, 0, RoleGPT},
		{"user", map[string]any{"role": "user", "value": "a"}, 1, RoleHuman},
		{"person", map[string]any{"role": "PERSON", "value": "a"}, 1, RoleHuman},
		{"speaker key", map[string]any{"speaker": "human", "value": "a"}, 1, RoleHuman},
		{"unknown even", map[string]any{"role": "narrator", "value": "a"}, 0, RoleHuman},
		{"unknown odd", map[string]any{"role": "narrator", "value": "a"}, 1, RoleGPT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Pad with filler turns so the turn under test lands at tt.pos.
			raw := make([]any, 0, tt.pos+1)
			for i := 0; i < tt.pos; i++ {
				raw = append(raw, map[string]any{"from": "human", "value": "pad"})
			}
			raw = append(raw, tt.turn)

			conv, err := ValidateRaw(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, conv[tt.pos].From)
		})
	}
}

func TestValidateRawPositionalFallback(t *testing.T) {
	raw := []any{
		map[string]any{"value": "first"},
		map[string]any{"value": "second"},
		map[string]any{"value": "third"},
	}

	conv, err := ValidateRaw(raw)
	require.NoError(t, err)

	assert.Equal(t, RoleHuman, conv[0].From)
	assert.Equal(t, RoleGPT, conv[1].From)
	assert.Equal(t, RoleHuman, conv[2].From)
}

func TestValidateRawValueAliasPriority(t *testing.T) {
	// "content" outranks "message" and "text".
	raw := []any{
		map[string]any{"from": "human", "content": "c", "message": "m", "text": "t"},
		map[string]any{"from": "gpt", "message": "m", "text": "t"},
		map[string]any{"from": "human", "text": "t"},
	}

	conv, err := ValidateRaw(raw)
	require.NoError(t, err)

	assert.Equal(t, "c", conv[0].Value)
	assert.Equal(t, "m", conv[1].Value)
	assert.Equal(t, "t", conv[2].Value)
}

func TestValidateRawMissingValue(t *testing.T) {
	raw := []any{
		map[string]any{"from": "human", "value": "ok"},
		map[string]any{"from": "gpt"},
	}

	_, err := ValidateRaw(raw)
	require.Error(t, err)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 1, formatErr.Index)
	assert.Contains(t, formatErr.Message, "missing value field")
}

func TestValidateRawNonMappingTurn(t *testing.T) {
	raw := []any{"not a map"}

	_, err := ValidateRaw(raw)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 0, formatErr.Index)
}

func TestValidateIdempotent(t *testing.T) {
	conv := Conversation{
		{From: "assistant", Value: "hello"},
		{From: RoleHuman, Value: "hi"},
	}

	once := Validate(conv)
	twice := Validate(once)
	assert.Equal(t, once, twice)

	// Canonical input passes through untouched.
	canonical := Conversation{
		{From: RoleHuman, Value: "q"},
		{From: RoleGPT, Value: "a"},
	}
	assert.Equal(t, canonical, Validate(canonical))
}

func TestValidateRawIdempotentThroughMaps(t *testing.T) {
	raw := []any{
		map[string]any{"role": "user", "content": "What is attention?"},
		map[string]any{"role": "assistant", "content": "A weighting mechanism."},
	}

	first, err := ValidateRaw(raw)
	require.NoError(t, err)

	// Re-encode the canonical output as raw maps and validate again.
	again := make([]any, len(first))
	for i, turn := range first {
		again[i] = map[string]any{"from": string(turn.From), "value": turn.Value}
	}
	second, err := ValidateRaw(again)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReferenceValuesLastWins(t *testing.T) {
	conv := Conversation{
		{From: RoleHuman, Value: "first question"},
		{From: RoleGPT, Value: "answer"},
		{From: RoleHuman, Value: "second question"},
	}

	values := conv.ReferenceValues(NewReferenceFieldSet(RoleHuman))
	require.Len(t, values, 1)
	assert.Equal(t, "second question", values[RoleHuman])
}

func TestStaticFieldPolicyDefaultsDynamic(t *testing.T) {
	policy := StaticFieldPolicy{RoleHuman: true}
	assert.True(t, policy.IsStatic(RoleHuman))
	assert.False(t, policy.IsStatic(RoleGPT))
}
