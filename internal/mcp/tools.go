package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/logging"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerReportTools()
	s.registerChatTools()
	s.registerNamespaceTools()
}

// track records metrics for a tool call and logs its failure. Call the
// returned function with the tool's final error.
func (s *Server) track(ctx context.Context, tool string) func(error) {
	end := s.metrics.begin(ctx, tool)
	return func(err error) {
		end(err)
		if err != nil {
			s.logger.Warn("tool call failed",
				append(logging.ContextFields(ctx), zap.String("tool", tool), zap.Error(err))...)
		}
	}
}

// ===== REPORT TOOLS =====

type buildReportInput struct {
	Subject   string   `json:"subject" jsonschema:"Company, drug or device name"`
	Condition string   `json:"condition,omitempty" jsonschema:"Therapeutic area narrowing the trial search, e.g. Oncology. Omit or use All for none"`
	Phases    []string `json:"phases,omitempty" jsonschema:"Trial phases to keep, e.g. Phase 2 and Phase 3. Omit for all phases"`
}

type buildReportOutput struct {
	Subject   string `json:"subject" jsonschema:"Subject the report covers"`
	Namespace string `json:"namespace" jsonschema:"Collection the data was indexed under, for ask_followup"`
	Report    string `json:"report" jsonschema:"Markdown due-diligence report"`
}

func (s *Server) registerReportTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "build_report",
		Description: "Build a pharma/medtech due-diligence report from ClinicalTrials.gov, openFDA and SEC EDGAR. " +
			"Indexes the collected data so follow-up questions can be asked with ask_followup.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args buildReportInput) (*mcp.CallToolResult, buildReportOutput, error) {
		var toolErr error
		done := s.track(ctx, "build_report")
		defer func() { done(toolErr) }()

		subject := strings.TrimSpace(args.Subject)
		if subject == "" {
			toolErr = fmt.Errorf("%w: subject is required", report.ErrInvalidRequest)
			return nil, buildReportOutput{}, toolErr
		}
		namespace := report.SanitizeCollectionName(subject)
		ctx = logging.WithNamespace(logging.WithSubject(ctx, subject), namespace)

		text, err := s.reports.BuildReport(ctx, report.Request{
			Subject:   subject,
			Condition: args.Condition,
			Phases:    args.Phases,
		})
		if err != nil {
			toolErr = fmt.Errorf("report build failed: %w", err)
			return nil, buildReportOutput{}, toolErr
		}

		return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, buildReportOutput{
				Subject:   subject,
				Namespace: namespace,
				Report:    text,
			}, nil
	})
}

// ===== CHAT TOOLS =====

type askFollowupInput struct {
	Subject   string              `json:"subject,omitempty" jsonschema:"Subject of a previously built report"`
	Namespace string              `json:"namespace,omitempty" jsonschema:"Collection returned by build_report. Takes precedence over subject"`
	Question  string              `json:"question" jsonschema:"Follow-up question"`
	History   []generator.Message `json:"history,omitempty" jsonschema:"Earlier conversation turns, oldest first"`
}

type askFollowupOutput struct {
	Namespace string            `json:"namespace" jsonschema:"Collection the answer was grounded on"`
	Answer    string            `json:"answer" jsonschema:"Answer grounded on the retrieved passages"`
	Passages  []passage.Passage `json:"passages" jsonschema:"Retrieved passages, nearest first"`
}

func (s *Server) registerChatTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "ask_followup",
		Description: "Answer a follow-up question using only the data indexed by an earlier build_report call. " +
			"Provide the subject or the namespace build_report returned.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askFollowupInput) (*mcp.CallToolResult, askFollowupOutput, error) {
		var toolErr error
		done := s.track(ctx, "ask_followup")
		defer func() { done(toolErr) }()

		var (
			answer *report.Answer
			err    error
		)
		switch {
		case args.Namespace != "":
			if report.SanitizeCollectionName(args.Namespace) != args.Namespace {
				toolErr = fmt.Errorf("%w: namespace %q is not a valid collection name", report.ErrInvalidRequest, args.Namespace)
				return nil, askFollowupOutput{}, toolErr
			}
			ctx = logging.WithNamespace(ctx, args.Namespace)
			answer, err = s.reports.AskNamespace(ctx, args.Namespace, args.Question, args.History)
		case strings.TrimSpace(args.Subject) != "":
			ctx = logging.WithSubject(ctx, args.Subject)
			answer, err = s.reports.Ask(ctx, args.Subject, args.Question, args.History)
		default:
			toolErr = fmt.Errorf("%w: subject or namespace is required", report.ErrInvalidRequest)
			return nil, askFollowupOutput{}, toolErr
		}
		if err != nil {
			toolErr = fmt.Errorf("follow-up failed: %w", err)
			return nil, askFollowupOutput{}, toolErr
		}

		passages := answer.Passages
		if passages == nil {
			passages = []passage.Passage{}
		}
		return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: answer.Answer}},
			}, askFollowupOutput{
				Namespace: answer.Namespace,
				Answer:    answer.Answer,
				Passages:  passages,
			}, nil
	})
}

// ===== NAMESPACE TOOLS =====

type collectionNameInput struct {
	Subject string `json:"subject" jsonschema:"Company, drug or device name"`
}

type collectionNameOutput struct {
	Subject   string `json:"subject" jsonschema:"Subject as given"`
	Namespace string `json:"namespace" jsonschema:"Collection name the subject is indexed under"`
}

func (s *Server) registerNamespaceTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "collection_name",
		Description: "Return the collection name a subject's data is indexed under",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args collectionNameInput) (*mcp.CallToolResult, collectionNameOutput, error) {
		var toolErr error
		done := s.track(ctx, "collection_name")
		defer func() { done(toolErr) }()

		namespace := report.SanitizeCollectionName(args.Subject)
		return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: namespace}},
			}, collectionNameOutput{
				Subject:   args.Subject,
				Namespace: namespace,
			}, nil
	})
}
