package mcpserver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmate/internal/chat"
	"mindmate/internal/content"
	"mindmate/internal/storage"
)

func newServer(t *testing.T) (*Server, *storage.Adapter) {
	t.Helper()
	kv, err := storage.NewFileKV(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	adapter := storage.NewAdapter(kv, "", zap.NewNop())
	return New(adapter, content.Default(), zap.NewNop()), adapter
}

func resultText(t *testing.T, r *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, r.Content, 1)
	tc, ok := r.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestReadHistory(t *testing.T) {
	s, adapter := newServer(t)
	ctx := context.Background()

	r, err := s.ReadHistory(ctx, nil, &mcp.CallToolParamsFor[ReadHistoryParams]{})
	require.NoError(t, err)
	assert.Equal(t, "No conversation saved yet.", resultText(t, r))

	require.NoError(t, adapter.SaveHistory(ctx, []chat.Message{
		chat.AI("Hello"), chat.User("hi"), chat.AI("How are you?"),
	}))

	r, err = s.ReadHistory(ctx, nil, &mcp.CallToolParamsFor[ReadHistoryParams]{})
	require.NoError(t, err)
	assert.Equal(t, "MindMate: Hello\n\nYou: hi\n\nMindMate: How are you?", resultText(t, r))

	r, err = s.ReadHistory(ctx, nil, &mcp.CallToolParamsFor[ReadHistoryParams]{Arguments: ReadHistoryParams{Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, "MindMate: How are you?", resultText(t, r))
}

func TestJournalTools(t *testing.T) {
	s, adapter := newServer(t)
	ctx := context.Background()

	r, err := s.ReadJournal(ctx, nil, &mcp.CallToolParamsFor[ReadJournalParams]{})
	require.NoError(t, err)
	assert.Equal(t, "The journal is empty.", resultText(t, r))

	r, err = s.SaveJournal(ctx, nil, &mcp.CallToolParamsFor[SaveJournalParams]{Arguments: SaveJournalParams{Text: "first"}})
	require.NoError(t, err)
	assert.False(t, r.IsError)

	r, err = s.SaveJournal(ctx, nil, &mcp.CallToolParamsFor[SaveJournalParams]{Arguments: SaveJournalParams{Text: "second", Append: true}})
	require.NoError(t, err)
	assert.False(t, r.IsError)

	text, ok := adapter.LoadJournal(ctx)
	require.True(t, ok)
	assert.Equal(t, "first\nsecond", text)

	r, err = s.ReadJournal(ctx, nil, &mcp.CallToolParamsFor[ReadJournalParams]{})
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", resultText(t, r))

	r, err = s.SaveJournal(ctx, nil, &mcp.CallToolParamsFor[SaveJournalParams]{Arguments: SaveJournalParams{Text: "  "}})
	require.NoError(t, err)
	assert.True(t, r.IsError)
}

func TestListResources(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()
	c := content.Default()

	r, err := s.ListResources(ctx, nil, &mcp.CallToolParamsFor[ListResourcesParams]{})
	require.NoError(t, err)
	text := resultText(t, r)
	for _, sec := range c.Resources.Sections {
		assert.Contains(t, text, "## "+sec.Title)
	}

	first := c.Resources.Sections[0]
	r, err = s.ListResources(ctx, nil, &mcp.CallToolParamsFor[ListResourcesParams]{Arguments: ListResourcesParams{Section: first.Title}})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, r), first.Items[0].Title)
	assert.NotContains(t, resultText(t, r), "## "+c.Resources.Sections[1].Title)

	r, err = s.ListResources(ctx, nil, &mcp.CallToolParamsFor[ListResourcesParams]{Arguments: ListResourcesParams{Section: "nope"}})
	require.NoError(t, err)
	assert.True(t, r.IsError)
}

func TestRegister(t *testing.T) {
	s, _ := newServer(t)
	srv := mcp.NewServer(&mcp.Implementation{Name: "mindmate", Version: "test"}, nil)
	assert.NotPanics(t, func() { s.Register(srv) })
}
