package logging

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestTraceLevel_BelowDebug(t *testing.T) {
	assert.Less(t, TraceLevel, zapcore.DebugLevel)
	assert.False(t, zapcore.DebugLevel.Enabled(TraceLevel))
	assert.True(t, TraceLevel.Enabled(zapcore.DebugLevel))
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"trace", TraceLevel},
		{"TRACE", TraceLevel},
		{" Trace\n", TraceLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"Warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelFromString_Invalid(t *testing.T) {
	got, err := LevelFromString("verbose")
	assert.Error(t, err)
	assert.Equal(t, zapcore.InfoLevel, got)
}

func TestLevelEncoders(t *testing.T) {
	t.Run("json prints trace", func(t *testing.T) {
		buf, err := newEncoder("json").EncodeEntry(zapcore.Entry{Level: TraceLevel, Message: "raw payload"}, nil)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Equal(t, "trace", out["level"])
	})

	t.Run("console prints upper case", func(t *testing.T) {
		buf, err := newEncoder("console").EncodeEntry(zapcore.Entry{Level: TraceLevel, Message: "raw payload"}, nil)
		require.NoError(t, err)
		assert.True(t, strings.Contains(buf.String(), "TRACE"), buf.String())

		buf, err = newEncoder("console").EncodeEntry(zapcore.Entry{Level: zapcore.WarnLevel, Message: "slow"}, nil)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "WARN")
	})
}
