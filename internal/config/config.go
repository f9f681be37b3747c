// Package config provides configuration loading for pharmadd.
//
// Configuration is read from an optional YAML file, overridden by
// environment variables, then completed with defaults. A handful of
// well-known variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENFDA_API_KEY,
// SEC_USER_AGENT) fill settings left empty by the file and the
// SECTION_FIELD variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds the complete pharmadd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	LLM           LLMConfig           `koanf:"llm"`
	Sources       SourcesConfig       `koanf:"sources"`
	Report        ReportConfig        `koanf:"report"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RequestTimeout bounds a single API request, report builds included.
	RequestTimeout Duration `koanf:"request_timeout"`
}

// ObservabilityConfig holds logging and OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	// OTLPProtocol is grpc (default) or http/protobuf.
	OTLPProtocol string `koanf:"otlp_protocol"`
	// TraceSampleRate is the fraction of traces kept. Zero means all.
	TraceSampleRate float64 `koanf:"trace_sample_rate"`
	LogLevel        string  `koanf:"log_level"`
	LogFormat       string  `koanf:"log_format"`
}

// VectorStoreConfig selects and configures the vector index.
//
// Fields are flat so every one of them maps to a VECTORSTORE_* variable.
type VectorStoreConfig struct {
	// Provider is chromem (default), qdrant or pgvector.
	Provider   string `koanf:"provider"`
	VectorSize int    `koanf:"vector_size"`

	// ChromemPath is the persistence directory. Empty keeps data in memory.
	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`

	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantUseTLS bool   `koanf:"qdrant_use_tls"`

	PgvectorDSN Secret `koanf:"pgvector_dsn"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	BatchSize int    `koanf:"batch_size"`
	Dimension int    `koanf:"dimension"`
}

// LLMConfig configures the text generation model.
type LLMConfig struct {
	// Provider is anthropic (default) or openai.
	Provider        string   `koanf:"provider"`
	Model           string   `koanf:"model"`
	BaseURL         string   `koanf:"base_url"`
	APIKey          Secret   `koanf:"api_key"`
	ReportMaxTokens int      `koanf:"report_max_tokens"`
	ChatMaxTokens   int      `koanf:"chat_max_tokens"`
	Timeout         Duration `koanf:"timeout"`
}

// SourcesConfig configures the public registry connectors.
type SourcesConfig struct {
	ClinicalTrialsURL string   `koanf:"clinicaltrials_url"`
	MaxTrials         int      `koanf:"max_trials"`
	OpenFDAURL        string   `koanf:"openfda_url"`
	OpenFDAAPIKey     Secret   `koanf:"openfda_api_key"`
	SECUserAgent      string   `koanf:"sec_user_agent"`
	SECTickersURL     string   `koanf:"sec_tickers_url"`
	SECDataURL        string   `koanf:"sec_data_url"`
	MarketEnabled     *bool    `koanf:"market_enabled"`
	MarketURL         string   `koanf:"market_url"`
	HTTPTimeout       Duration `koanf:"http_timeout"`
}

// ReportConfig holds report orchestration limits.
type ReportConfig struct {
	MaxDevices int `koanf:"max_devices"`
	// RecordLimit caps every openFDA lookup. Zero keeps each lookup's default.
	RecordLimit int `koanf:"record_limit"`
	ChatTopK    int `koanf:"chat_top_k"`
	FilingLimit int `koanf:"filing_limit"`
}

// Supported providers.
var (
	vectorStoreProviders = map[string]bool{"chromem": true, "qdrant": true, "pgvector": true}
	llmProviders         = map[string]bool{"anthropic": true, "openai": true}
)

// Load loads configuration from the default file location and the
// environment. A missing file is not an error.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// MarketDataEnabled reports whether the market data connector is on.
// It defaults to true.
func (s SourcesConfig) MarketDataEnabled() bool {
	return s.MarketEnabled == nil || *s.MarketEnabled
}

// Validate validates the configuration.
//
// API keys are not required here: commands that never reach the language
// model (namespace, version) must work without them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Observability.TraceSampleRate < 0 || c.Observability.TraceSampleRate > 1 {
		return fmt.Errorf("trace sample rate must be between 0 and 1, got %g", c.Observability.TraceSampleRate)
	}

	if !vectorStoreProviders[c.VectorStore.Provider] {
		return fmt.Errorf("unsupported vectorstore provider: %q (supported: chromem, qdrant, pgvector)", c.VectorStore.Provider)
	}
	if c.VectorStore.Provider == "pgvector" && !c.VectorStore.PgvectorDSN.IsSet() {
		return errors.New("vectorstore.pgvector_dsn required for the pgvector provider")
	}
	if c.VectorStore.QdrantPort < 0 || c.VectorStore.QdrantPort > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.VectorStore.QdrantPort)
	}
	if c.VectorStore.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", c.VectorStore.VectorSize)
	}
	if c.Embeddings.Dimension != c.VectorStore.VectorSize {
		return fmt.Errorf("embeddings.dimension (%d) must equal vectorstore.vector_size (%d)",
			c.Embeddings.Dimension, c.VectorStore.VectorSize)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings batch size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if !llmProviders[c.LLM.Provider] {
		return fmt.Errorf("unsupported llm provider: %q (supported: anthropic, openai)", c.LLM.Provider)
	}
	if c.LLM.ReportMaxTokens <= 0 || c.LLM.ChatMaxTokens <= 0 {
		return errors.New("llm max tokens must be positive")
	}

	if c.Sources.SECUserAgent == "" {
		return errors.New("sources.sec_user_agent must not be empty")
	}
	if c.Report.MaxDevices < 0 || c.Report.RecordLimit < 0 || c.Report.ChatTopK < 0 {
		return errors.New("report limits must not be negative")
	}
	return nil
}

// applyWellKnownEnv fills empty settings from the conventional variables
// used by the upstream SDKs and registries.
func applyWellKnownEnv(cfg *Config) {
	if !cfg.Embeddings.APIKey.IsSet() {
		cfg.Embeddings.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
	}
	if !cfg.LLM.APIKey.IsSet() {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
		default:
			cfg.LLM.APIKey = Secret(os.Getenv("ANTHROPIC_API_KEY"))
		}
	}
	if !cfg.Sources.OpenFDAAPIKey.IsSet() {
		cfg.Sources.OpenFDAAPIKey = Secret(os.Getenv("OPENFDA_API_KEY"))
	}
	if cfg.Sources.SECUserAgent == "" {
		cfg.Sources.SECUserAgent = os.Getenv("SEC_USER_AGENT")
	}
}
