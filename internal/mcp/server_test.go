package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

type mockReports struct {
	mock.Mock
}

func (m *mockReports) BuildReport(ctx context.Context, req report.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockReports) Ask(ctx context.Context, subject, question string, history []generator.Message) (*report.Answer, error) {
	args := m.Called(ctx, subject, question, history)
	a, _ := args.Get(0).(*report.Answer)
	return a, args.Error(1)
}

func (m *mockReports) AskNamespace(ctx context.Context, namespace, question string, history []generator.Message) (*report.Answer, error) {
	args := m.Called(ctx, namespace, question, history)
	a, _ := args.Get(0).(*report.Answer)
	return a, args.Error(1)
}

// connect serves s over an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func setup(t *testing.T) (*mockReports, *mcp.ClientSession) {
	t.Helper()
	reports := &mockReports{}
	s, err := NewServer(nil, reports)
	require.NoError(t, err)
	t.Cleanup(func() { reports.AssertExpectations(t) })
	return reports, connect(t, s)
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func decode(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestNewServer(t *testing.T) {
	t.Run("requires report service", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "report service is required")
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		s, err := NewServer(nil, &mockReports{})
		require.NoError(t, err)
		assert.NotNil(t, s.mcp)
		assert.NotNil(t, s.logger)
	})
}

func TestListTools(t *testing.T) {
	_, cs := setup(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	assert.ElementsMatch(t, []string{"build_report", "ask_followup", "collection_name"}, names)
}

func TestBuildReportTool(t *testing.T) {
	t.Run("returns report and namespace", func(t *testing.T) {
		reports, cs := setup(t)
		reports.On("BuildReport", mock.Anything, report.Request{
			Subject:   "Johnson & Johnson",
			Condition: "Oncology",
			Phases:    []string{"Phase 3"},
		}).Return("## Due Diligence Report: Johnson & Johnson", nil).Once()

		res := callTool(t, cs, "build_report", map[string]any{
			"subject":   " Johnson & Johnson ",
			"condition": "Oncology",
			"phases":    []string{"Phase 3"},
		})

		require.False(t, res.IsError, text(t, res))
		assert.Equal(t, "## Due Diligence Report: Johnson & Johnson", text(t, res))

		var out buildReportOutput
		decode(t, res, &out)
		assert.Equal(t, "Johnson & Johnson", out.Subject)
		assert.Equal(t, "johnson___johnson", out.Namespace)
		assert.Equal(t, "## Due Diligence Report: Johnson & Johnson", out.Report)
	})

	t.Run("blank subject is a tool error", func(t *testing.T) {
		_, cs := setup(t)

		res := callTool(t, cs, "build_report", map[string]any{"subject": "  "})

		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "subject is required")
	})

	t.Run("indexing failure is a tool error", func(t *testing.T) {
		reports, cs := setup(t)
		reports.On("BuildReport", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("%w: %w", report.ErrIndexing, errors.New("store unavailable"))).Once()

		res := callTool(t, cs, "build_report", map[string]any{"subject": "Pfizer"})

		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "indexing failed")
	})
}

func TestAskFollowupTool(t *testing.T) {
	dist := 0.25
	passages := []passage.Passage{{
		Text:     "Recall Z-1234-2024 is Class II.",
		Metadata: map[string]string{passage.MetaSource: passage.SourceDeviceRecall},
		Distance: &dist,
	}}

	t.Run("answers by subject with history", func(t *testing.T) {
		reports, cs := setup(t)
		history := []generator.Message{
			{Role: generator.RoleUser, Content: "Build the report"},
			{Role: generator.RoleAssistant, Content: "Done."},
		}
		reports.On("Ask", mock.Anything, "Medtronic", "Any recalls?", history).
			Return(&report.Answer{Namespace: "medtronic", Answer: "One Class II recall.", Passages: passages}, nil).Once()

		res := callTool(t, cs, "ask_followup", map[string]any{
			"subject":  "Medtronic",
			"question": "Any recalls?",
			"history": []map[string]string{
				{"role": "user", "content": "Build the report"},
				{"role": "assistant", "content": "Done."},
			},
		})

		require.False(t, res.IsError, text(t, res))
		assert.Equal(t, "One Class II recall.", text(t, res))

		var out askFollowupOutput
		decode(t, res, &out)
		assert.Equal(t, "medtronic", out.Namespace)
		require.Len(t, out.Passages, 1)
		assert.Equal(t, passage.SourceDeviceRecall, out.Passages[0].Source())
		require.NotNil(t, out.Passages[0].Distance)
		assert.InDelta(t, 0.25, *out.Passages[0].Distance, 1e-9)
	})

	t.Run("namespace takes precedence", func(t *testing.T) {
		reports, cs := setup(t)
		reports.On("AskNamespace", mock.Anything, "medtronic", "Any recalls?", []generator.Message(nil)).
			Return(&report.Answer{Namespace: "medtronic", Answer: "I don't have data on that in the current dataset."}, nil).Once()

		res := callTool(t, cs, "ask_followup", map[string]any{
			"subject":   "ignored",
			"namespace": "medtronic",
			"question":  "Any recalls?",
		})

		require.False(t, res.IsError, text(t, res))
		var out askFollowupOutput
		decode(t, res, &out)
		assert.NotNil(t, out.Passages)
		assert.Empty(t, out.Passages)
	})

	t.Run("rejects malformed namespace", func(t *testing.T) {
		_, cs := setup(t)

		res := callTool(t, cs, "ask_followup", map[string]any{
			"namespace": "../etc",
			"question":  "Any recalls?",
		})

		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "not a valid collection name")
	})

	t.Run("requires subject or namespace", func(t *testing.T) {
		_, cs := setup(t)

		res := callTool(t, cs, "ask_followup", map[string]any{"question": "Any recalls?"})

		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "subject or namespace is required")
	})

	t.Run("service error is a tool error", func(t *testing.T) {
		reports, cs := setup(t)
		reports.On("Ask", mock.Anything, "Pfizer", " ", []generator.Message(nil)).
			Return(nil, fmt.Errorf("%w: question is required", report.ErrInvalidRequest)).Once()

		res := callTool(t, cs, "ask_followup", map[string]any{"subject": "Pfizer", "question": " "})

		assert.True(t, res.IsError)
		assert.Contains(t, text(t, res), "question is required")
	})
}

func TestCollectionNameTool(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Pfizer", "pfizer"},
		{"Johnson & Johnson", "johnson___johnson"},
		{"", "_co"},
	}

	_, cs := setup(t)
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			res := callTool(t, cs, "collection_name", map[string]any{"subject": tt.subject})

			require.False(t, res.IsError)
			assert.Equal(t, tt.want, text(t, res))
			var out collectionNameOutput
			decode(t, res, &out)
			assert.Equal(t, tt.subject, out.Subject)
			assert.Equal(t, tt.want, out.Namespace)
		})
	}
}
