package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/logging"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

// reportService is the part of report.Builder the CLI drives.
type reportService interface {
	BuildReport(ctx context.Context, req report.Request) (string, error)
	Ask(ctx context.Context, subject, question string, history []generator.Message) (*report.Answer, error)
}

func newReportCmd() *cobra.Command {
	var (
		condition string
		phases    []string
	)
	cmd := &cobra.Command{
		Use:   "report <subject>",
		Short: "Build a due-diligence report",
		Long: `Build a due-diligence report for a company, drug or device and print it
as markdown. The collected data stays indexed for "pharmadd ask".

Examples:
  pharmadd report Pfizer
  pharmadd report "Johnson & Johnson" --condition Oncology --phase 2 --phase 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return runReport(ctx, a.builder, cmd.OutOrStdout(), args[0], condition, phases)
			})
		},
	}
	cmd.Flags().StringVar(&condition, "condition", "", "therapeutic area: "+strings.Join(report.TherapeuticAreas, ", "))
	cmd.Flags().StringSliceVar(&phases, "phase", nil, "trial phase to keep, e.g. 3 or \"Phase 3\"; repeat for several")
	return cmd
}

func newAskCmd() *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <subject> <question>",
		Short: "Ask a follow-up question about a built report",
		Long: `Answer a question from the data indexed by an earlier report build.

Examples:
  pharmadd ask Pfizer "Which Phase 3 trials are recruiting?"
  pharmadd ask Medtronic "Any Class I recalls?" --sources`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return runAsk(ctx, a.builder, cmd.OutOrStdout(), args[0], args[1], showSources)
			})
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "list the passages the answer was grounded on")
	return cmd
}

func newNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespace <subject>",
		Short: "Print the collection name a subject is indexed under",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), report.SanitizeCollectionName(args[0]))
		},
	}
}

// withApp wires the services with logs on stderr, runs fn and closes them.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()
	return fn(ctx, a)
}

func runReport(ctx context.Context, svc reportService, out io.Writer, subject, condition string, phases []string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	ctx = logging.WithSubject(ctx, subject)

	text, err := svc.BuildReport(ctx, report.Request{
		Subject:   subject,
		Condition: condition,
		Phases:    phases,
	})
	if err != nil {
		return fmt.Errorf("building report for %s: %w", subject, err)
	}
	fmt.Fprintln(out, text)
	return nil
}

func runAsk(ctx context.Context, svc reportService, out io.Writer, subject, question string, showSources bool) error {
	ctx = logging.WithSubject(ctx, subject)

	answer, err := svc.Ask(ctx, subject, question, nil)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Fprintln(out, answer.Answer)

	if showSources && len(answer.Passages) > 0 {
		fmt.Fprintf(out, "\nSources (%s):\n", answer.Namespace)
		for i, p := range answer.Passages {
			fmt.Fprintf(out, "%2d. %s\n", i+1, describePassage(p))
		}
	}
	return nil
}

// describePassage renders a one-line source reference for p.
func describePassage(p passage.Passage) string {
	var b strings.Builder
	b.WriteString(p.Source())
	if p.Distance != nil {
		fmt.Fprintf(&b, " (distance %.3f)", *p.Distance)
	}
	if url := p.SourceURL(); url != "" {
		b.WriteString(" ")
		b.WriteString(url)
	}
	return b.String()
}
