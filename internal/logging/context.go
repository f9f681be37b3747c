package logging

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	subjectKey ctxKey = iota
	namespaceKey
	requestIDKey
)

const (
	maxSubjectLen   = 200
	maxRequestIDLen = 128
)

var (
	namespacePattern = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)
	requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ContextFields returns the correlation fields carried by ctx: trace and
// span IDs of the active span, then the report subject, namespace and
// request ID when set.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	for _, f := range []struct {
		key ctxKey
		out string
	}{
		{subjectKey, "subject"},
		{namespaceKey, "namespace"},
		{requestIDKey, "request.id"},
	} {
		if v := stringValue(ctx, f.key); v != "" {
			fields = append(fields, zap.String(f.out, v))
		}
	}
	return fields
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithSubject attaches the report subject. Subjects are user input, so
// invalid UTF-8 is replaced and values are cut to 200 runes.
func WithSubject(ctx context.Context, subject string) context.Context {
	subject = strings.ToValidUTF8(subject, "�")
	if utf8.RuneCountInString(subject) > maxSubjectLen {
		subject = string([]rune(subject)[:maxSubjectLen])
	}
	return context.WithValue(ctx, subjectKey, subject)
}

func SubjectFromContext(ctx context.Context) string {
	return stringValue(ctx, subjectKey)
}

// WithNamespace attaches a sanitized collection name. Anything else leaves
// ctx unchanged; callers reject bad names before they get here.
func WithNamespace(ctx context.Context, namespace string) context.Context {
	if !namespacePattern.MatchString(namespace) {
		return ctx
	}
	return context.WithValue(ctx, namespaceKey, namespace)
}

func NamespaceFromContext(ctx context.Context) string {
	return stringValue(ctx, namespaceKey)
}

// WithRequestID attaches a request ID of at most 128 letters, digits,
// hyphens and underscores. Other IDs leave ctx unchanged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if len(id) > maxRequestIDLen || !requestIDPattern.MatchString(id) {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}
