package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

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

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "mcp", "report", "ask", "namespace", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestNamespaceCmd(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Pfizer", "pfizer"},
		{"Johnson & Johnson", "johnson___johnson"},
		{"Boston Scientific", "boston_scientific"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			out, err := execute(t, "namespace", tt.subject)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestNamespaceCmd_RequiresSubject(t *testing.T) {
	_, err := execute(t, "namespace")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pharmadd by Fyrsmith Labs")
	assert.Contains(t, out, "Version:    "+version)
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(""))
	})

	t.Run("loads without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		content := "PHARMADD_TEST_NEW=from-file\nPHARMADD_TEST_SET=from-file\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		t.Setenv("PHARMADD_TEST_SET", "from-env")
		t.Setenv("PHARMADD_TEST_NEW", "")
		require.NoError(t, os.Unsetenv("PHARMADD_TEST_NEW"))

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("PHARMADD_TEST_NEW"))
		assert.Equal(t, "from-env", os.Getenv("PHARMADD_TEST_SET"))
	})
}

func TestRunReport(t *testing.T) {
	t.Run("prints the report", func(t *testing.T) {
		svc := &mockReports{}
		svc.On("BuildReport", mock.Anything, report.Request{
			Subject:   "Medtronic",
			Condition: "Cardiology",
			Phases:    []string{"3"},
		}).Return("## Due Diligence Report: Medtronic", nil).Once()

		var out bytes.Buffer
		err := runReport(context.Background(), svc, &out, " Medtronic ", "Cardiology", []string{"3"})

		require.NoError(t, err)
		assert.Equal(t, "## Due Diligence Report: Medtronic\n", out.String())
		svc.AssertExpectations(t)
	})

	t.Run("blank subject", func(t *testing.T) {
		svc := &mockReports{}
		var out bytes.Buffer

		err := runReport(context.Background(), svc, &out, "   ", "", nil)

		assert.Error(t, err)
		assert.Empty(t, out.String())
		svc.AssertNotCalled(t, "BuildReport", mock.Anything, mock.Anything)
	})

	t.Run("build error is wrapped", func(t *testing.T) {
		svc := &mockReports{}
		svc.On("BuildReport", mock.Anything, mock.Anything).Return("", report.ErrIndexing).Once()

		err := runReport(context.Background(), svc, &bytes.Buffer{}, "Pfizer", "", nil)

		assert.True(t, errors.Is(err, report.ErrIndexing))
		assert.Contains(t, err.Error(), "Pfizer")
	})
}

func TestRunAsk(t *testing.T) {
	dist := 0.125
	answer := &report.Answer{
		Namespace: "medtronic",
		Answer:    "One Class II recall [Source: fda_device_recall].",
		Passages: []passage.Passage{{
			Text: "Recall Z-1234-2024",
			Metadata: map[string]string{
				passage.MetaSource:    passage.SourceDeviceRecall,
				passage.MetaSourceURL: "https://api.fda.gov/device/recall.json",
			},
			Distance: &dist,
		}},
	}

	t.Run("answer only", func(t *testing.T) {
		svc := &mockReports{}
		svc.On("Ask", mock.Anything, "Medtronic", "Any recalls?", []generator.Message(nil)).Return(answer, nil).Once()

		var out bytes.Buffer
		require.NoError(t, runAsk(context.Background(), svc, &out, "Medtronic", "Any recalls?", false))

		assert.Equal(t, answer.Answer+"\n", out.String())
	})

	t.Run("with sources", func(t *testing.T) {
		svc := &mockReports{}
		svc.On("Ask", mock.Anything, "Medtronic", "Any recalls?", []generator.Message(nil)).Return(answer, nil).Once()

		var out bytes.Buffer
		require.NoError(t, runAsk(context.Background(), svc, &out, "Medtronic", "Any recalls?", true))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "Sources (medtronic):", lines[2])
		assert.Equal(t, " 1. fda_device_recall (distance 0.125) https://api.fda.gov/device/recall.json", lines[3])
	})

	t.Run("service error", func(t *testing.T) {
		svc := &mockReports{}
		svc.On("Ask", mock.Anything, "Pfizer", "", []generator.Message(nil)).
			Return(nil, report.ErrInvalidRequest).Once()

		err := runAsk(context.Background(), svc, &bytes.Buffer{}, "Pfizer", "", false)
		assert.ErrorIs(t, err, report.ErrInvalidRequest)
	})
}
