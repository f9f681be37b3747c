package report

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/pharmadd/internal/records"
	"github.com/fyrsmithlabs/pharmadd/internal/telemetry"
)

// testTelemetry is installed once; the package tracer binds to the first
// global provider.
var testTelemetry = sync.OnceValue(func() *telemetry.TestTelemetry {
	tt := telemetry.NewTestTelemetry()
	tt.Install()
	return tt
})

func TestBuildReport_RecordsSpan(t *testing.T) {
	tt := testTelemetry()

	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).
		Return([]records.Trial{trial("NCT11")}, nil)
	f.emptySources()
	f.captureIndexed("span_probe_inc", nil)
	f.retriever.On("ForReport", anyArg, "span_probe_inc").Return(nil, nil)
	f.generator.On("GenerateReport", anyArg, "Span Probe Inc", anyArg).Return("## Due Diligence Report: Span Probe Inc")

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{
		Subject:   "Span Probe Inc",
		Condition: "Oncology",
	})
	require.NoError(t, err)

	span := tt.FindSpan("report.BuildReport", map[string]any{
		"namespace": "span_probe_inc",
		"condition": "Oncology",
	})
	require.NotNil(t, span, "report.BuildReport span not recorded")

	var passages int64 = -1
	for _, kv := range span.Attributes() {
		if kv.Key == "passage_count" {
			passages = kv.Value.AsInt64()
		}
	}
	assert.Positive(t, passages)
}

func TestAsk_RecordsSpan(t *testing.T) {
	tt := testTelemetry()

	f := newFixture()
	f.retriever.On("ForChat", anyArg, "span_probe_ask", "Any trials?", anyArg).Return(nil, nil)
	f.generator.On("GenerateChatResponse", anyArg, anyArg, anyArg, anyArg).Return("No data.")

	_, err := f.builder(t, Options{}).AskNamespace(context.Background(), "span_probe_ask", "Any trials?", nil)
	require.NoError(t, err)

	assert.NotNil(t, tt.FindSpan("report.Ask", map[string]any{"namespace": "span_probe_ask"}))
}
