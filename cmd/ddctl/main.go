// Package main implements the ddctl CLI for manual operations against a
// pharmadd HTTP server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/pharmadd/internal/http"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// client talks to one pharmadd server.
type client struct {
	baseURL string
	http    *http.Client
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)
	c := &client{}

	root := &cobra.Command{
		Use:   "ddctl",
		Short: "CLI for pharmadd HTTP server operations",
		Long: `ddctl is a command-line interface for interacting with the pharmadd HTTP server.
It builds reports, asks follow-up questions and inspects indexed namespaces.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.baseURL = strings.TrimRight(serverURL, "/")
			c.http = &http.Client{Timeout: timeout}
		},
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "pharmadd server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "request timeout; report builds can take minutes")

	root.AddCommand(
		newReportCmd(c),
		newAskCmd(c),
		newNamespacesCmd(c),
		newHealthCmd(c),
	)
	return root
}

func newReportCmd(c *client) *cobra.Command {
	var (
		condition string
		phases    []string
	)
	cmd := &cobra.Command{
		Use:   "report <subject>",
		Short: "Build a due-diligence report",
		Long: `Build a due-diligence report on the server and print the markdown.

Examples:
  # Report on a company
  ddctl report Pfizer

  # Narrow trials to oncology Phase 3
  ddctl report "Johnson & Johnson" --condition Oncology --phase "Phase 3"

  # Use a different server
  ddctl report Medtronic --server http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.ReportResponse
			err := c.do(cmd.Context(), http.MethodPost, "/api/v1/reports", httpserver.ReportRequest{
				Subject:   args[0],
				Condition: condition,
				Phases:    phases,
			}, &resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Report)
			fmt.Fprintf(cmd.ErrOrStderr(), "[ddctl] indexed under namespace %s\n", resp.Namespace)
			return nil
		},
	}
	cmd.Flags().StringVar(&condition, "condition", "", "therapeutic area filter")
	cmd.Flags().StringSliceVar(&phases, "phase", nil, "trial phase to keep; repeat for several")
	return cmd
}

func newAskCmd(c *client) *cobra.Command {
	var (
		namespace   string
		showSources bool
	)
	cmd := &cobra.Command{
		Use:   "ask [subject] <question>",
		Short: "Ask a follow-up question about a built report",
		Long: `Ask a question answered from the data indexed by an earlier report.

Examples:
  # By subject
  ddctl ask Pfizer "Which Phase 3 trials are recruiting?"

  # By namespace, listing the passages used
  ddctl ask --namespace medtronic "Any Class I recalls?" --sources`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := httpserver.ChatRequest{Namespace: namespace}
			switch {
			case len(args) == 2:
				req.Subject, req.Question = args[0], args[1]
			case namespace != "":
				req.Question = args[0]
			default:
				return fmt.Errorf("a subject or --namespace is required")
			}

			var resp httpserver.ChatResponse
			if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/chat", req, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Answer)
			if showSources && len(resp.Passages) > 0 {
				fmt.Fprintf(out, "\nSources (%s):\n", resp.Namespace)
				for i, p := range resp.Passages {
					fmt.Fprintf(out, "%2d. %s %s\n", i+1, p.Source(), p.SourceURL())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace returned by a report build")
	cmd.Flags().BoolVar(&showSources, "sources", false, "list the passages the answer was grounded on")
	return cmd
}

func newNamespacesCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List indexed namespaces and their passage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.NamespacesResponse
			if err := c.do(cmd.Context(), http.MethodGet, "/api/v1/namespaces", nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAMESPACE\tPASSAGES")
			for _, ns := range resp.Namespaces {
				count := fmt.Sprint(ns.Passages)
				if ns.Passages < 0 {
					count = "?"
				}
				fmt.Fprintf(w, "%s\t%s\n", ns.Name, count)
			}
			return w.Flush()
		},
	}
}

func newHealthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check pharmadd server health",
		Long: `Check the health status of the pharmadd HTTP server.

Examples:
  # Check health
  ddctl health

  # Check health on a different server
  ddctl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.HealthResponse
			if err := c.do(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", resp.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Server URL: %s\n", c.baseURL)
			return nil
		},
	}
}

// do sends body as JSON to path and decodes the response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.baseURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError reads the server's error message from a non-200 response.
func statusError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, err)
	}
	var he struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &he) == nil && he.Message != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, he.Message)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
