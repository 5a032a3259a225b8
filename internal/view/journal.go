package view

import (
	"context"
	"sync"
)

// JournalStore persists the single journal entry. storage.Adapter implements it.
type JournalStore interface {
	LoadJournal(ctx context.Context) (string, bool)
	SaveJournal(ctx context.Context, text string) error
}

// Journal is the journal panel: a draft that survives tab switches and is
// persisted only on Save.
type Journal struct {
	store JournalStore

	mu    sync.Mutex
	draft string
	saved bool
}

// NewJournal loads the saved entry, if any, as the initial draft.
func NewJournal(ctx context.Context, store JournalStore) *Journal {
	j := &Journal{store: store}
	if text, ok := store.LoadJournal(ctx); ok {
		j.draft = text
	}
	return j
}

func (j *Journal) Draft() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.draft
}

func (j *Journal) Edit(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.draft = text
	j.saved = false
}

// Append adds text to the draft on a new line.
func (j *Journal) Append(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.draft != "" {
		j.draft += "\n"
	}
	j.draft += text
	j.saved = false
}

// Save persists the exact draft and raises the saved flag.
func (j *Journal) Save(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.store.SaveJournal(ctx, j.draft); err != nil {
		return err
	}
	j.saved = true
	return nil
}

// Saved reports whether the draft is unchanged since the last Save.
func (j *Journal) Saved() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.saved
}
