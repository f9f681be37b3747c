// Pharmadd builds pharma/medtech due-diligence reports from public
// registries and answers follow-up questions about them.
//
// Usage:
//
//	# Start the HTTP API
//	pharmadd serve
//
//	# Serve MCP tools over stdio
//	pharmadd mcp
//
//	# One-off report and follow-up
//	pharmadd report "Johnson & Johnson" --condition Oncology --phase 3
//	pharmadd ask "Johnson & Johnson" "Which trials are recruiting?"
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	envFile    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pharmadd",
		Short: "Pharma/medtech due-diligence reports from public registries",
		Long: `pharmadd collects ClinicalTrials.gov, openFDA and SEC EDGAR data about a
company, drug or device, indexes it in a vector store and writes a
due-diligence report grounded on that data. Follow-up questions are
answered from the same index.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/pharmadd/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config; missing files are ignored")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newReportCmd(),
		newAskCmd(),
		newNamespaceCmd(),
		newVersionCmd(),
	)
	return root
}

// loadEnvFile loads variables from path without overriding ones already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pharmadd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
