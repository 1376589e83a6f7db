package conversation

import "strings"

// Recognized key aliases for the role and text fields of a raw turn. The
// canonical wire keys ("from", "value") are checked first; value aliases
// are checked in priority order.
var (
	roleKeys  = []string{"from", "role", "speaker"}
	valueKeys = []string{"value", "content", "message", "text"}
)

// gptAliases and humanAliases map foreign role spellings onto the two
// canonical roles. Matching is case-insensitive; anything unrecognized
// falls back to the positional default.
var (
	gptAliases   = map[string]bool{"gpt": true, "assistant": true, "ai": true, "bot": true, "claude": true}
	humanAliases = map[string]bool{"human": true, "user": true, "person": true}
)

// ValidateRaw normalizes a sequence of turn-like mappings into a canonical
// Conversation. Role resolution: a recognized role key with a recognized
// value wins; otherwise the turn's position decides (even → human,
// odd → gpt). Text resolution walks the value aliases in priority order and
// fails with a FormatError when none is present.
//
// ValidateRaw is idempotent: feeding its output back (as maps or through
// Validate) yields the same conversation.
func ValidateRaw(raw []any) (Conversation, error) {
	conv := make(Conversation, 0, len(raw))
	for i, elem := range raw {
		turn, ok := elem.(map[string]any)
		if !ok || turn == nil {
			return nil, &FormatError{Index: i, Message: "turn is not a mapping"}
		}

		role := resolveRole(turn, i)

		value, ok := resolveValue(turn)
		if !ok {
			return nil, &FormatError{Index: i, Message: "missing value field"}
		}

		conv = append(conv, Turn{From: role, Value: value})
	}
	return conv, nil
}

// Validate repairs an already-typed conversation: any turn whose role is
// not canonical gets the positional default. Valid input passes through
// unchanged, so validate(validate(c)) == validate(c).
func Validate(c Conversation) Conversation {
	out := make(Conversation, len(c))
	for i, turn := range c {
		if !turn.From.Valid() {
			turn.From = normalizeRole(string(turn.From), i)
		}
		out[i] = turn
	}
	return out
}

func resolveRole(turn map[string]any, i int) Role {
	for _, key := range roleKeys {
		v, ok := turn[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		return normalizeRole(s, i)
	}
	return positionalRole(i)
}

func normalizeRole(s string, i int) Role {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case gptAliases[lower]:
		return RoleGPT
	case humanAliases[lower]:
		return RoleHuman
	default:
		return positionalRole(i)
	}
}

func resolveValue(turn map[string]any) (string, bool) {
	for _, key := range valueKeys {
		v, ok := turn[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}
