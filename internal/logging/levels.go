package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and is meant for raw registry payloads and
// per-chunk indexing detail. It is filtered out unless asked for.
const TraceLevel = zapcore.DebugLevel - 1

// LevelFromString parses a level name. It accepts "trace" in addition to
// the zap names and ignores case and surrounding space.
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// levelName is the lowercase name of lvl, "trace" included.
func levelName(lvl zapcore.Level) string {
	if lvl == TraceLevel {
		return "trace"
	}
	return lvl.String()
}

// encodeLevel writes lowercase level names for JSON output.
func encodeLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelName(lvl))
}

// encodeCapitalLevel writes uppercase level names for console output.
func encodeCapitalLevel(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(strings.ToUpper(levelName(lvl)))
}
