package view

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmate/internal/speech"
	"mindmate/internal/storage"
)

var _ speech.Field = (*Composer)(nil)

func TestController(t *testing.T) {
	c := NewController()
	assert.Equal(t, TabChat, c.Active())

	require.NoError(t, c.Switch(TabAbout))
	assert.Equal(t, TabAbout, c.Active())
	assert.Equal(t, TabChat, c.Next())
	assert.Equal(t, TabAbout, c.Prev())
	assert.Equal(t, TabResources, c.Prev())

	err := c.Switch(Tab("settings"))
	assert.True(t, errors.Is(err, ErrUnknownTab))
	assert.Equal(t, TabResources, c.Active())
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab(" Journal ")
	require.NoError(t, err)
	assert.Equal(t, TabJournal, tab)
	assert.Equal(t, "Journal", tab.Title())

	_, err = ParseTab("settings")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func newAdapter(t *testing.T) *storage.Adapter {
	t.Helper()
	kv, err := storage.NewFileKV(filepath.Join(t.TempDir(), "kv.json"))
	require.NoError(t, err)
	return storage.NewAdapter(kv, "", zap.NewNop())
}

func TestJournal_SavePersistsExactDraft(t *testing.T) {
	ctx := context.Background()
	store := newAdapter(t)
	j := NewJournal(ctx, store)
	assert.Equal(t, "", j.Draft())

	j.Edit("  Today I went for a walk.\n")
	assert.False(t, j.Saved())
	require.NoError(t, j.Save(ctx))
	assert.True(t, j.Saved())

	got, ok := store.LoadJournal(ctx)
	require.True(t, ok)
	assert.Equal(t, "  Today I went for a walk.\n", got)

	j.Append("It helped.")
	assert.False(t, j.Saved())
	assert.Equal(t, "  Today I went for a walk.\n\nIt helped.", j.Draft())

	reopened := NewJournal(ctx, store)
	assert.Equal(t, "  Today I went for a walk.\n", reopened.Draft())
}

func TestJournal_TabSwitchKeepsDraftAndStoredValue(t *testing.T) {
	ctx := context.Background()
	store := newAdapter(t)
	j := NewJournal(ctx, store)
	c := NewController()

	require.NoError(t, c.Switch(TabJournal))
	j.Edit("saved text")
	require.NoError(t, j.Save(ctx))
	j.Edit("unsaved draft")

	for _, tab := range Tabs {
		require.NoError(t, c.Switch(tab))
	}
	assert.Equal(t, "unsaved draft", j.Draft())
	got, _ := store.LoadJournal(ctx)
	assert.Equal(t, "saved text", got)
}

func TestComposer(t *testing.T) {
	c := NewComposer()
	assert.True(t, c.Type("hello"))
	assert.Equal(t, "hello", c.Text())

	c.SetReadOnly(true)
	assert.False(t, c.Type("typed while recording"))
	c.Set("transcript")
	assert.Equal(t, "transcript", c.Text())

	c.SetReadOnly(false)
	assert.Equal(t, "transcript", c.Take())
	assert.Equal(t, "", c.Text())
}

func TestComposerSubmit(t *testing.T) {
	c := NewComposer()
	c.Set("leftover")
	text, ok := c.Submit("hello")
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "", c.Text())

	c.SetReadOnly(true)
	_, ok = c.Submit("typed while recording")
	assert.False(t, ok)
}

func TestComposerSubmitKeepsConcurrentTexts(t *testing.T) {
	c := NewComposer()
	const n = 50
	got := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, ok := c.Submit(fmt.Sprintf("message %d", i))
			if ok {
				got[i] = text
			}
		}(i)
	}
	wg.Wait()
	for i, text := range got {
		assert.Equal(t, fmt.Sprintf("message %d", i), text)
	}
}
