package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/pharmadd/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long: `Serve the build_report, ask_followup and collection_name tools over
the MCP stdio transport. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context())
		},
	}
}

func runMCP(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "pharmadd",
		Version: version,
		Logger:  a.logger.Underlying(),
	}, a.builder)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
