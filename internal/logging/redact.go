package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
)

const (
	redacted         = "[REDACTED]"
	maxPatternLength = 200
)

// Secret creates a field for a config.Secret that shows only its length.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString creates a field with the value replaced by its length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// Redactor hides sensitive values. A field whose key contains one of the
// configured names is dropped wholesale; string values have pattern
// matches replaced in place, keeping capture group 1 when the pattern has
// one (so "api_key=abc" becomes "api_key=[REDACTED]").
type Redactor struct {
	keys     []string
	patterns []*regexp.Regexp
}

// NewRedactor compiles cfg. A disabled config yields a Redactor that
// changes nothing.
func NewRedactor(cfg RedactionConfig) (*Redactor, error) {
	r := &Redactor{}
	if !cfg.Enabled {
		return r, nil
	}
	for _, k := range cfg.Fields {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.keys = append(r.keys, k)
		}
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLength {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLength, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// SensitiveKey reports whether a field named key must be hidden.
func (r *Redactor) SensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

// Scrub replaces every pattern match in s.
func (r *Redactor) Scrub(s string) string {
	for _, re := range r.patterns {
		if re.NumSubexp() > 0 {
			s = re.ReplaceAllString(s, "${1}"+redacted)
		} else {
			s = re.ReplaceAllLiteralString(s, redacted)
		}
	}
	return s
}

// Field returns f with sensitive content hidden. Errors are flattened to
// their scrubbed message.
func (r *Redactor) Field(f zapcore.Field) zapcore.Field {
	if r.SensitiveKey(f.Key) {
		return zap.String(f.Key, redacted)
	}
	switch f.Type {
	case zapcore.StringType:
		if s := r.Scrub(f.String); s != f.String {
			return zap.String(f.Key, s)
		}
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return zap.String(f.Key, r.Scrub(err.Error()))
		}
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok && s != nil {
			return zap.String(f.Key, r.Scrub(s.String()))
		}
	}
	return f
}

// redactingEncoder applies a Redactor to everything it encodes. Fields
// added through With reach the Add* methods; fields passed with a log call
// and the message itself reach EncodeEntry.
type redactingEncoder struct {
	zapcore.Encoder
	r *Redactor
}

func (e *redactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent.Message = e.r.Scrub(ent.Message)
	scrubbed := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		scrubbed[i] = e.r.Field(f)
	}
	return e.Encoder.EncodeEntry(ent, scrubbed)
}

func (e *redactingEncoder) AddString(key, val string) {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddString(key, e.r.Scrub(val))
}

func (e *redactingEncoder) AddByteString(key string, val []byte) {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddString(key, e.r.Scrub(string(val)))
}

func (e *redactingEncoder) AddBinary(key string, val []byte) {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected hides the whole value for a sensitive key. Values inside a
// reflected struct are not inspected.
func (e *redactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *redactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *redactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.SensitiveKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
