// Package conversation defines the canonical two-role conversation model
// used throughout caia-datachef, plus the validator that normalizes
// arbitrary turn-like records into it.
package conversation

import "fmt"

// Role identifies the speaker of a turn. After validation, only RoleHuman
// and RoleGPT reach downstream consumers.
type Role string

const (
	RoleHuman Role = "human"
	RoleGPT   Role = "gpt"
)

// Valid reports whether the role is one of the two canonical values.
func (r Role) Valid() bool {
	return r == RoleHuman || r == RoleGPT
}

// positionalRole is the fallback role for a turn with no usable role key:
// even positions are human, odd positions are gpt.
func positionalRole(i int) Role {
	if i%2 == 0 {
		return RoleHuman
	}
	return RoleGPT
}

// Turn is one utterance. The JSON field names "from" and "value" are the
// wire format shared with collaborators and persisted datasets; they must
// not change.
type Turn struct {
	From  Role   `json:"from"`
	Value string `json:"value"`
}

// Conversation is an ordered dialogue. Insertion order is dialogue order.
type Conversation []Turn

// Batch is an ordered set of conversations. Position in the batch is the
// conversation_id used by tabular exports.
type Batch []Conversation

// StaticFieldPolicy maps a role to whether its turns are copied verbatim
// during expansion. Absent roles are dynamic.
type StaticFieldPolicy map[Role]bool

// IsStatic reports whether turns of the given role are excluded from
// paraphrasing.
func (p StaticFieldPolicy) IsStatic(r Role) bool {
	return p[r]
}

// ReferenceFieldSet is the set of roles whose original turn text is offered
// as grounding context to every paraphrase call for a conversation.
type ReferenceFieldSet map[Role]bool

// NewReferenceFieldSet builds a set from a list of roles.
func NewReferenceFieldSet(roles ...Role) ReferenceFieldSet {
	set := make(ReferenceFieldSet, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

// ReferenceValues extracts role → text for every turn whose role is in the
// reference set. The last occurrence of a role wins.
func (c Conversation) ReferenceValues(fields ReferenceFieldSet) map[Role]string {
	values := make(map[Role]string)
	for _, turn := range c {
		if fields[turn.From] {
			values[turn.From] = turn.Value
		}
	}
	return values
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// FormatError reports a structurally invalid turn or conversation. It is
// scoped to a single conversation and never aborts a batch.
type FormatError struct {
	Index   int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("turn %d: %s", e.Index, e.Message)
}
