package main

import (
	"github.com/spf13/cobra"

	"mindmate/internal/config"
	"mindmate/internal/mcpserver"
	"mindmate/internal/storage"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the local history, journal and resources as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			if cfg.LogOutput == "stdout" {
				cfg.LogOutput = "stderr"
			}
			a, err := newApp(cfg, "")
			if err != nil {
				return err
			}
			defer a.Close()

			adapter := storage.NewAdapter(a.kv, localNamespace, a.logger)
			return mcpserver.New(adapter, a.content, a.logger).Run(cmd.Context(), version)
		},
	}
}
