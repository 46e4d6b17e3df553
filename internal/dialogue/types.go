package dialogue

import "context"

// Roles for conversation turns, matching the chat-completion wire format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one exchange in the conversation history.
type Turn struct {
	Role string
	Text string
}

// Responder produces the assistant's next reply given the system prompt and
// the conversation so far. The final turn in turns is the caller's latest
// utterance.
type Responder interface {
	Respond(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
}
