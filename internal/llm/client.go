package llm

import (
	"context"
	"errors"
)

// Roles understood by every provider. Providers translate RoleModel into
// their own name for assistant turns.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client performs one stateless generation over the given turns.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// splitSystem separates leading and interleaved system messages from the
// conversational turns, preserving the order of both.
func splitSystem(messages []Message) (system []string, turns []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
