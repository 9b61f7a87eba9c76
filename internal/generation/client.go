package generation

import "context"

// Role identifies the author of one conversation turn.
type Role string

// Possible role values
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface to the external text-generation service.
//
// Both methods return the raw response text; parsing and validation are the
// caller's concern. Failures are classified with the sentinel errors in
// errors.go so the pipeline can tell transport failures apart from its own
// parse failures.
// Version: 1.0
type Client interface {
	// Generate produces text for a single input under the given system
	// instructions.
	Generate(ctx context.Context, input, instructions string) (string, error)

	// GenerateFromHistory produces text for an ordered conversation history
	// under the given system instructions. The history must end with a user
	// turn; violating that ordering is a caller error (ErrInvalidHistory).
	GenerateFromHistory(ctx context.Context, history []Message, instructions string) (string, error)
}

// ValidateHistory checks the ordering contract for a conversation history.
// Implementations of Client should call this before issuing a request.
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return ErrInvalidHistory
	}
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return ErrInvalidHistory
		}
	}
	if history[len(history)-1].Role != RoleUser {
		return ErrInvalidHistory
	}
	return nil
}
