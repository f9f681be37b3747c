package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithSubject(context.Background(), "Medtronic")

	tl.Info(ctx, "trials fetched", zap.Int("count", 3), zap.String("connector", "clinicaltrials"))
	tl.Trace(ctx, "raw page")

	tl.AssertLogged(t, zapcore.InfoLevel, "trials fetched")
	tl.AssertLogged(t, TraceLevel, "raw page")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "trials fetched")
	tl.AssertField(t, "trials fetched", "count", 3)
	tl.AssertField(t, "trials fetched", "subject", "Medtronic")
	tl.AssertNoField(t, "trials fetched", "namespace")
	assert.Equal(t, []string{"trials fetched", "raw page"}, tl.Messages())

	tl.Reset()
	assert.Empty(t, tl.Entries())
}

func TestTestLogger_Level(t *testing.T) {
	tl := NewTestLoggerAt(zapcore.WarnLevel)

	tl.Info(context.Background(), "quiet")
	tl.Warn(context.Background(), "loud")

	assert.Equal(t, []string{"loud"}, tl.Messages())
	assert.False(t, tl.Enabled(zapcore.InfoLevel))
}

func TestTestLogger_RedactsLikeProduction(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Warn(ctx, "openfda request failed",
		zap.String("openfda_api_key", "k-123"),
		zap.Error(errors.New("GET /device/recall.json?api_key=k-123: 500")),
	)
	tl.Underlying().With(zap.String("llm_api_key", "sk-ant-REDACTED")).Info("model ready")

	tl.AssertNoSecrets(t, "k-123", "sk-ant-REDACTED")
	tl.AssertField(t, "openfda request failed", "openfda_api_key", "[REDACTED]")
	tl.AssertField(t, "openfda request failed", "error", "GET /device/recall.json?api_key=[REDACTED]: 500")
}

func TestTestLogger_AssertNoSecretsDetectsLeak(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "subject Pfizer", zap.String("note", "plain"))

	rec := &recordingTB{}
	tl.AssertNoSecrets(rec, "Pfizer")
	assert.True(t, rec.failed)
}

// recordingTB notes failures instead of failing the running test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...any) { r.failed = true }
