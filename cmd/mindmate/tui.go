package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mindmate/internal/config"
	"mindmate/internal/prompt"
	"mindmate/internal/session"
	"mindmate/internal/storage"
	"mindmate/internal/tui"
	"mindmate/internal/view"
)

// localNamespace is the device-local key space shared by the terminal UI and
// the MCP server.
const localNamespace = ""

func tuiCmd() *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Chat with MindMate in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logFile)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.newClient(ctx)
			if err != nil {
				return err
			}
			adapter := storage.NewAdapter(a.kv, localNamespace, a.logger)
			model := tui.New(ctx, tui.Deps{
				Session: session.New(client, prompt.Load(cfg.SystemPromptPath, a.logger), adapter, a.logger),
				Journal: view.NewJournal(ctx, adapter),
				Content: a.content,
				Logger:  a.logger,
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "logs/mindmate-tui.log", "Write logs to this file instead of the terminal")
	return cmd
}
