// Package mcpserver exposes the local MindMate history, journal and
// resources as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mindmate/internal/chat"
	"mindmate/internal/content"
)

// Store is the namespaced storage the tools read and write.
// storage.Adapter implements it.
type Store interface {
	LoadHistory(ctx context.Context) ([]chat.Message, bool)
	LoadJournal(ctx context.Context) (string, bool)
	SaveJournal(ctx context.Context, text string) error
}

type ReadHistoryParams struct {
	Limit int `json:"limit,omitempty" mcp:"return only the last N messages (default: all)"`
}

type ReadJournalParams struct{}

type SaveJournalParams struct {
	Text   string `json:"text" mcp:"journal entry text"`
	Append bool   `json:"append,omitempty" mcp:"append to the saved entry on a new line instead of replacing it"`
}

type ListResourcesParams struct {
	Section string `json:"section,omitempty" mcp:"only list the section with this title (case-insensitive)"`
}

type Server struct {
	store   Store
	content *content.Content
	logger  *zap.Logger
}

func New(store Store, c *content.Content, logger *zap.Logger) *Server {
	if c == nil {
		c = content.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, content: c, logger: logger}
}

// Register adds the MindMate tools to srv.
func (s *Server) Register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_history",
		Description: "Returns the saved MindMate conversation",
	}, s.ReadHistory)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_journal",
		Description: "Returns the saved journal entry",
	}, s.ReadJournal)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "save_journal",
		Description: "Saves or appends to the journal entry",
	}, s.SaveJournal)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_resources",
		Description: "Lists the mental health resources shown in the Resources tab",
	}, s.ListResources)
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context, version string) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "mindmate", Version: version}, nil)
	s.Register(srv)
	s.logger.Info("mcp server starting", zap.String("transport", "stdio"))
	if err := srv.Run(ctx, mcp.NewStdioTransport()); err != nil {
		return fmt.Errorf("run mcp server: %w", err)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	r := textResult(text)
	r.IsError = true
	return r
}

func (s *Server) ReadHistory(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReadHistoryParams]) (*mcp.CallToolResultFor[any], error) {
	history, ok := s.store.LoadHistory(ctx)
	if !ok {
		return textResult("No conversation saved yet."), nil
	}
	if n := params.Arguments.Limit; n > 0 && n < len(history) {
		history = history[len(history)-n:]
	}
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Author == chat.AuthorUser {
			b.WriteString("You: ")
		} else {
			b.WriteString("MindMate: ")
		}
		b.WriteString(m.Text)
	}
	return textResult(b.String()), nil
}

func (s *Server) ReadJournal(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[ReadJournalParams]) (*mcp.CallToolResultFor[any], error) {
	text, ok := s.store.LoadJournal(ctx)
	if !ok {
		return textResult("The journal is empty."), nil
	}
	return textResult(text), nil
}

func (s *Server) SaveJournal(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SaveJournalParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Text) == "" {
		return errorResult("text is required"), nil
	}
	text := args.Text
	if args.Append {
		if prev, ok := s.store.LoadJournal(ctx); ok {
			text = prev + "\n" + text
		}
	}
	if err := s.store.SaveJournal(ctx, text); err != nil {
		s.logger.Error("save journal", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to save journal: %v", err)), nil
	}
	s.logger.Info("journal saved", zap.Int("length", len(text)), zap.Bool("append", args.Append))
	return textResult("Saved!"), nil
}

func (s *Server) ListResources(_ context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListResourcesParams]) (*mcp.CallToolResultFor[any], error) {
	want := strings.TrimSpace(params.Arguments.Section)
	var b strings.Builder
	for _, sec := range s.content.Resources.Sections {
		if want != "" && !strings.EqualFold(sec.Title, want) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## " + sec.Title)
		for _, it := range sec.Items {
			b.WriteString("\n- " + it.Title + ": " + it.Description)
			if it.Link != "" {
				b.WriteString(" (" + it.Link + ")")
			}
		}
	}
	if b.Len() == 0 {
		return errorResult(fmt.Sprintf("no resource section %q", want)), nil
	}
	return textResult(b.String()), nil
}
