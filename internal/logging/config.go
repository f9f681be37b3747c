package logging

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
)

// Encodings accepted by Config.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config describes one process logger.
type Config struct {
	Level  zapcore.Level `koanf:"level"`
	Format string        `koanf:"format"`
	Output OutputConfig  `koanf:"output"`

	Sampling   SamplingConfig   `koanf:"sampling"`
	Caller     CallerConfig     `koanf:"caller"`
	Stacktrace StacktraceConfig `koanf:"stacktrace"`
	Redaction  RedactionConfig  `koanf:"redaction"`

	// Fields are attached to every entry, e.g. service=pharmadd.
	Fields map[string]string `koanf:"fields"`
}

// OutputConfig selects the sinks. Stdout and Stderr share one encoder;
// OTEL hands entries to the log bridge.
type OutputConfig struct {
	Stdout bool `koanf:"stdout"`
	Stderr bool `koanf:"stderr"`
	OTEL   bool `koanf:"otel"`
}

// SamplingConfig throttles chatty levels, e.g. per-page connector debug
// logs during a large trial search.
type SamplingConfig struct {
	Enabled bool                                  `koanf:"enabled"`
	Tick    config.Duration                       `koanf:"tick"`
	Levels  map[zapcore.Level]LevelSamplingConfig `koanf:"levels"`
}

// LevelSamplingConfig keeps the first Initial entries per message and tick,
// then every Thereafter-th. Thereafter 0 drops the rest.
type LevelSamplingConfig struct {
	Initial    int `koanf:"initial"`
	Thereafter int `koanf:"thereafter"`
}

type CallerConfig struct {
	Enabled bool `koanf:"enabled"`
	Skip    int  `koanf:"skip"`
}

type StacktraceConfig struct {
	Level zapcore.Level `koanf:"level"`
}

// RedactionConfig lists field keys (matched by substring) and value patterns
// whose matches are replaced before entries leave the process.
type RedactionConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Fields   []string `koanf:"fields"`
	Patterns []string `koanf:"patterns"`
}

// NewDefaultConfig returns JSON to stdout at info with redaction and
// sampling on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: FormatJSON,
		Output: OutputConfig{Stdout: true},
		Sampling: SamplingConfig{
			Enabled: true,
			Tick:    config.Duration(time.Second),
			Levels:  DefaultLevelSamplingConfig(),
		},
		Caller:     CallerConfig{Enabled: true, Skip: 1},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key", "apikey",
				"authorization", "credential", "private_key", "dsn",
			},
			Patterns: DefaultRedactionPatterns(),
		},
		Fields: map[string]string{"service": "pharmadd"},
	}
}

// DefaultRedactionPatterns matches credentials that end up inside URLs,
// headers and error strings: openFDA query keys, LLM provider keys, bearer
// tokens and Postgres DSN passwords.
func DefaultRedactionPatterns() []string {
	return []string{
		`(?i)(api_key=)[A-Za-z0-9%_~-]+`,
		`sk-(?:ant-)?[A-Za-z0-9_-]{16,}`,
		`(?i)(bearer\s+)\S+`,
		`(postgres(?:ql)?://[^:/\s]+:)[^@\s]+`,
	}
}

// DefaultLevelSamplingConfig keeps warnings mostly intact and thins info,
// debug and trace hard.
func DefaultLevelSamplingConfig() map[zapcore.Level]LevelSamplingConfig {
	return map[zapcore.Level]LevelSamplingConfig{
		TraceLevel:         {Initial: 1},
		zapcore.DebugLevel: {Initial: 10},
		zapcore.InfoLevel:  {Initial: 100, Thereafter: 10},
		zapcore.WarnLevel:  {Initial: 100, Thereafter: 100},
	}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Format {
	case FormatJSON, FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("format must be 'json' or 'console', got %q", c.Format))
	}
	if c.Output == (OutputConfig{}) {
		errs = append(errs, errors.New("at least one output must be enabled (stdout, stderr or otel)"))
	}

	if c.Sampling.Enabled && c.Sampling.Tick.Duration() <= 0 {
		errs = append(errs, errors.New("sampling tick must be > 0 when sampling is enabled"))
	}
	for lvl := range c.Sampling.Levels {
		if lvl >= zapcore.ErrorLevel {
			errs = append(errs, fmt.Errorf("sampling is not allowed for level %s; error and above are always logged", lvl))
		}
	}

	if c.Caller.Enabled && c.Caller.Skip < 0 {
		errs = append(errs, fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip))
	}
	if _, err := NewRedactor(c.Redaction); err != nil {
		errs = append(errs, err)
	}

	for k, v := range c.Fields {
		switch {
		case k == "":
			errs = append(errs, errors.New("field key cannot be empty"))
		case v == "":
			errs = append(errs, fmt.Errorf("field %q has empty value", k))
		}
	}

	return errors.Join(errs...)
}

// FromObservability derives the process logging config from the
// observability section. OTEL output follows EnableTelemetry.
func FromObservability(obs config.ObservabilityConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if obs.LogLevel != "" {
		level, err := LevelFromString(obs.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}
	if obs.LogFormat != "" {
		cfg.Format = obs.LogFormat
	}
	if obs.ServiceName != "" {
		cfg.Fields["service"] = obs.ServiceName
	}
	cfg.Output.OTEL = obs.EnableTelemetry

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	return cfg, nil
}
