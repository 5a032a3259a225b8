package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Chat is a stateful conversation handle on top of a stateless Client. It
// carries the system instruction and every completed turn, and sends the whole
// context on each SendMessage, so a chat created with prior history gives the
// model that context without replaying it turn by turn.
type Chat struct {
	id     uuid.UUID
	client Client
	system string

	mu      sync.Mutex
	history []Message
}

// NewChat creates a handle. history must use RoleUser/RoleModel turns.
func NewChat(client Client, systemInstruction string, history []Message) *Chat {
	h := make([]Message, len(history))
	copy(h, history)
	return &Chat{
		id:      uuid.New(),
		client:  client,
		system:  systemInstruction,
		history: h,
	}
}

func (c *Chat) ID() uuid.UUID { return c.id }

// History returns a copy of the turns the handle currently holds.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// SendMessage sends text as a user turn and returns the model reply. The turn
// pair is recorded only when the call succeeds.
func (c *Chat) SendMessage(ctx context.Context, text string) (Response, error) {
	c.mu.Lock()
	msgs := make([]Message, 0, len(c.history)+2)
	if c.system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: c.system})
	}
	msgs = append(msgs, c.history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: text})
	c.mu.Unlock()

	resp, err := c.client.Generate(ctx, msgs)
	if err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Response{}, ErrEmptyResponse
	}

	c.mu.Lock()
	c.history = append(c.history,
		Message{Role: RoleUser, Content: text},
		Message{Role: RoleModel, Content: resp.Content},
	)
	c.mu.Unlock()
	return resp, nil
}
