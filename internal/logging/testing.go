package logging

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry in memory. Entries pass through the
// default redaction rules first, the same way they would in production.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger records entries at Trace and above.
func NewTestLogger() *TestLogger {
	return NewTestLoggerAt(TraceLevel)
}

// NewTestLoggerAt records entries at level and above.
func NewTestLoggerAt(level zapcore.Level) *TestLogger {
	cfg := NewDefaultConfig()
	cfg.Level = level
	cfg.Caller.Enabled = false
	cfg.Sampling.Enabled = false

	r, err := NewRedactor(cfg.Redaction)
	if err != nil {
		panic(err)
	}
	core, observed := observer.New(level)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(&redactCore{Core: core, r: r}), config: cfg},
		observed: observed,
	}
}

// Entries returns every recorded entry.
func (t *TestLogger) Entries() []observer.LoggedEntry {
	return t.observed.All()
}

// Messages returns the message of every recorded entry, in order.
func (t *TestLogger) Messages() []string {
	entries := t.observed.All()
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i] = e.Message
	}
	return msgs
}

// FilterMessage returns entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset drops recorded entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged fails tb unless an entry at level contains msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if t.observed.FilterLevelExact(level).FilterMessageSnippet(msg).Len() == 0 {
		tb.Errorf("no %s entry containing %q; got %q", levelName(level), msg, t.Messages())
	}
}

// AssertNotLogged fails tb if an entry at level contains msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := t.observed.FilterLevelExact(level).FilterMessageSnippet(msg).Len(); n > 0 {
		tb.Errorf("found %d %s entries containing %q", n, levelName(level), msg)
	}
}

// AssertField fails tb unless an entry containing msg has key set to
// want. Values are compared by their printed form, so 3 matches an int64
// field and "x" matches a string field.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) {
	tb.Helper()
	var seen []any
	for _, e := range t.observed.FilterMessageSnippet(msg).All() {
		if v, ok := e.ContextMap()[key]; ok {
			if fmt.Sprint(v) == fmt.Sprint(want) {
				return
			}
			seen = append(seen, v)
		}
	}
	tb.Errorf("field %s=%v not found on %q entries; saw %v", key, want, msg, seen)
}

// AssertNoField fails tb if any entry containing msg carries key.
func (t *TestLogger) AssertNoField(tb testing.TB, msg, key string) {
	tb.Helper()
	for _, e := range t.observed.FilterMessageSnippet(msg).All() {
		if _, ok := e.ContextMap()[key]; ok {
			tb.Errorf("entry %q unexpectedly has field %s", e.Message, key)
		}
	}
}

// AssertNoSecrets fails tb if any message or field value contains one of
// secrets verbatim.
func (t *TestLogger) AssertNoSecrets(tb testing.TB, secrets ...string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		for _, s := range secrets {
			if s == "" {
				continue
			}
			if strings.Contains(e.Message, s) {
				tb.Errorf("secret leaked in message %q", e.Message)
			}
			for k, v := range e.ContextMap() {
				if strings.Contains(fmt.Sprint(v), s) {
					tb.Errorf("secret leaked in field %s of %q", k, e.Message)
				}
			}
		}
	}
}
