package logging

import (
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// instrumentationName names the OTEL logger log records are emitted under.
const instrumentationName = "github.com/fyrsmithlabs/pharmadd"

// newCore tees the console core and the OTEL bridge, then applies
// sampling to the result. Redaction covers the console core only; the
// bridge gets the same redacted fields through redactCore.
func newCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	r, err := NewRedactor(cfg.Redaction)
	if err != nil {
		return nil, err
	}

	var cores []zapcore.Core
	if cfg.Output.Stdout || cfg.Output.Stderr {
		var w io.Writer = os.Stdout
		if cfg.Output.Stderr {
			w = os.Stderr
		}
		cores = append(cores, newWriterCore(cfg, r, zapcore.AddSync(w)))
	}
	if cfg.Output.OTEL && provider != nil {
		bridge := otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider))
		cores = append(cores, &redactCore{Core: &levelRangeCore{Core: bridge, lo: cfg.Level, hi: zapcore.FatalLevel}, r: r})
	}
	if len(cores) == 0 {
		return nil, fmt.Errorf("no log output available: OTEL output needs a logger provider")
	}
	return newSampledCore(zapcore.NewTee(cores...), cfg.Sampling), nil
}

func newWriterCore(cfg *Config, r *Redactor, ws zapcore.WriteSyncer) zapcore.Core {
	enc := newEncoder(cfg.Format)
	if cfg.Redaction.Enabled {
		enc = &redactingEncoder{Encoder: enc, r: r}
	}
	return zapcore.NewCore(enc, ws, cfg.Level)
}

// redactCore scrubs fields before handing them to a core that does not
// go through an encoder, such as the OTEL bridge.
type redactCore struct {
	zapcore.Core
	r *Redactor
}

func (c *redactCore) scrub(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = c.r.Field(f)
	}
	return out
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(c.scrub(fields)), r: c.r}
}

func (c *redactCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *redactCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	e.Message = c.r.Scrub(e.Message)
	return c.Core.Write(e, c.scrub(fields))
}
