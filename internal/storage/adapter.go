package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mindmate/internal/chat"
)

// Fixed keys of the device-local store.
const (
	HistoryKey = "mindmate_chat_history"
	JournalKey = "mindmate_journal_entry"
)

// Adapter reads and writes the conversation history and the journal entry
// under fixed keys of a KV. A non-empty namespace prefixes both keys.
// Read failures are reported as "nothing saved"; they never surface as errors.
type Adapter struct {
	kv        KV
	namespace string
	logger    *zap.Logger
}

func NewAdapter(kv KV, namespace string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{kv: kv, namespace: namespace, logger: logger}
}

func (a *Adapter) key(k string) string {
	if a.namespace == "" {
		return k
	}
	return a.namespace + ":" + k
}

// LoadHistory returns the stored conversation. ok is false when nothing is
// stored, the stored array is empty or the stored value cannot be decoded.
func (a *Adapter) LoadHistory(ctx context.Context) ([]chat.Message, bool) {
	raw, err := a.kv.Get(ctx, a.key(HistoryKey))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("load history", zap.String("namespace", a.namespace), zap.Error(err))
		}
		return nil, false
	}
	var history []chat.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		a.logger.Warn("decode history", zap.String("namespace", a.namespace), zap.Error(err))
		return nil, false
	}
	if err := chat.Validate(history); err != nil {
		a.logger.Warn("invalid history", zap.String("namespace", a.namespace), zap.Error(err))
		return nil, false
	}
	if len(history) == 0 {
		return nil, false
	}
	return history, true
}

// SaveHistory overwrites the stored conversation with h. Empty h is ignored.
func (a *Adapter) SaveHistory(ctx context.Context, h []chat.Message) error {
	if len(h) == 0 {
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := a.kv.Set(ctx, a.key(HistoryKey), string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (a *Adapter) ClearHistory(ctx context.Context) error {
	if err := a.kv.Delete(ctx, a.key(HistoryKey)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// LoadJournal returns the saved journal entry; an empty entry counts as absent.
func (a *Adapter) LoadJournal(ctx context.Context) (string, bool) {
	text, err := a.kv.Get(ctx, a.key(JournalKey))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.logger.Warn("load journal", zap.String("namespace", a.namespace), zap.Error(err))
		}
		return "", false
	}
	if text == "" {
		return "", false
	}
	return text, true
}

func (a *Adapter) SaveJournal(ctx context.Context, text string) error {
	if err := a.kv.Set(ctx, a.key(JournalKey), text); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}
