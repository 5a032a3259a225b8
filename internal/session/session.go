package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindmate/internal/chat"
	"mindmate/internal/llm"
)

const (
	// PrimingMessage asks the model for the opening greeting of a fresh
	// conversation. It is never stored as a user message.
	PrimingMessage = "Hello, I'm starting a new session and would like a friendly greeting."
	// FallbackReply replaces the reply whenever the model call fails.
	FallbackReply = "I'm sorry, I'm having a little trouble connecting right now. Please try again in a moment."
)

// HistoryStore persists the whole conversation. storage.Adapter implements it.
type HistoryStore interface {
	LoadHistory(ctx context.Context) ([]chat.Message, bool)
	SaveHistory(ctx context.Context, h []chat.Message) error
	ClearHistory(ctx context.Context) error
}

// Observer is notified once per model round trip.
type Observer interface {
	ObserveReply(d time.Duration, fallback bool)
}

// Session owns the ordered message list and the single live chat handle of
// one user. At most one send is in flight at a time.
type Session struct {
	client llm.Client
	system string
	store  HistoryStore
	logger *zap.Logger

	mu       sync.Mutex
	handle   *llm.Chat
	messages []chat.Message
	pending  bool
	opened   bool
	observer Observer
}

func New(client llm.Client, systemInstruction string, store HistoryStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{client: client, system: systemInstruction, store: store, logger: logger}
}

func (s *Session) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Start replaces the chat handle with a new one seeded with prior. The old
// handle is dropped; a send already running on it still completes.
func (s *Session) Start(prior []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked(prior)
}

func (s *Session) startLocked(prior []chat.Message) {
	s.handle = llm.NewChat(s.client, s.system, toTurns(prior))
	s.logger.Debug("chat handle started", zap.String("handle", s.handle.ID().String()), zap.Int("prior_turns", len(prior)))
}

func toTurns(h []chat.Message) []llm.Message {
	turns := make([]llm.Message, 0, len(h))
	for _, m := range h {
		role := llm.RoleModel
		if m.Author == chat.AuthorUser {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Message{Role: role, Content: m.Text})
	}
	return turns
}

// Open restores the stored conversation, or greets the user when none exists.
// greeted reports whether this call produced a new greeting. Calling Open
// again is a no-op.
func (s *Session) Open(ctx context.Context) (greeted bool) {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return false
	}
	s.opened = true
	if history, ok := s.store.LoadHistory(ctx); ok {
		s.messages = chat.Clone(history)
		s.startLocked(history)
		s.mu.Unlock()
		s.logger.Info("conversation restored", zap.Int("messages", len(history)))
		return false
	}
	s.greetLocked(ctx)
	return true
}

// Clear deletes the stored conversation and starts over with a fresh greeting.
// It returns false while a send is pending.
func (s *Session) Clear(ctx context.Context) bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	if err := s.store.ClearHistory(ctx); err != nil {
		s.logger.Error("clear history", zap.Error(err))
	}
	s.messages = nil
	s.opened = true
	s.greetLocked(ctx)
	return true
}

// greetLocked must be entered with mu held; it releases it.
func (s *Session) greetLocked(ctx context.Context) {
	s.pending = true
	s.startLocked(nil)
	handle := s.handle
	s.mu.Unlock()

	reply := s.ask(ctx, handle, PrimingMessage)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []chat.Message{chat.AI(reply)}
	s.persistLocked(ctx)
	s.pending = false
}

// Send appends USER(text), asks the model and appends its reply or the
// fallback. ok is false, and nothing happens, when text is blank or another
// send is pending.
func (s *Session) Send(ctx context.Context, text string) (reply string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return "", false
	}
	s.pending = true
	s.messages = append(s.messages, chat.User(text))
	s.persistLocked(ctx)
	if s.handle == nil {
		s.startLocked(nil)
	}
	handle := s.handle
	s.mu.Unlock()

	reply = s.ask(ctx, handle, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, chat.AI(reply))
	s.persistLocked(ctx)
	s.pending = false
	return reply, true
}

func (s *Session) ask(ctx context.Context, handle *llm.Chat, text string) string {
	start := time.Now()
	resp, err := handle.SendMessage(ctx, text)
	fallback := err != nil
	reply := resp.Content
	if fallback {
		s.logger.Error("model request failed", zap.String("handle", handle.ID().String()), zap.Error(err))
		reply = FallbackReply
	} else {
		s.logger.Debug("model replied",
			zap.String("model", resp.Model),
			zap.Int("prompt_tokens", resp.PromptTokens),
			zap.Int("completion_tokens", resp.CompletionTokens),
		)
	}

	s.mu.Lock()
	o := s.observer
	s.mu.Unlock()
	if o != nil {
		o.ObserveReply(time.Since(start), fallback)
	}
	return reply
}

func (s *Session) persistLocked(ctx context.Context) {
	if err := s.store.SaveHistory(ctx, chat.Clone(s.messages)); err != nil {
		s.logger.Error("save history", zap.Error(err))
	}
}

// Messages returns a snapshot of the conversation in display order.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.Clone(s.messages)
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
