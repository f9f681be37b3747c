package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// DefaultSECUserAgent identifies the client to SEC EDGAR, which rejects
	// anonymous requests.
	DefaultSECUserAgent = "Pharma DD Chatbot contact@example.com"
)

// LoadWithFile loads configuration from YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_HTTP_PORT, VECTORSTORE_PROVIDER, etc.)
//  2. YAML config file (~/.config/pharmadd/config.yaml)
//  3. Well-known variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENFDA_API_KEY, SEC_USER_AGENT)
//  4. Hardcoded defaults
//
// # Security Considerations
//
// The file must have 0600 or 0400 permissions, live under
// ~/.config/pharmadd/ or /etc/pharmadd/, and be at most 1MB.
//
// # Environment Variable Mapping
//
// Variables split on the first underscore into section and field:
//
//	SERVER_HTTP_PORT -> server.http_port
//	VECTORSTORE_CHROMEM_PATH -> vectorstore.chromem_path
//	SOURCES_OPENFDA_API_KEY -> sources.openfda_api_key
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate the descriptor to avoid a TOCTOU race
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyWellKnownEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(s)
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pharmadd"), nil
}

// EnsureConfigDir creates the pharmadd config directory with 0700
// permissions if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Paths that don't exist yet are validated as written
		resolvedPath = absPath
	}

	dir, err := configDir()
	if err != nil {
		return err
	}
	for _, allowed := range []string{dir, "/etc/pharmadd"} {
		if strings.HasPrefix(resolvedPath, allowed+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/pharmadd/ or /etc/pharmadd/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = Duration(5 * time.Minute)
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "pharmadd"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}

	// chromem is the default: embedded, no external services
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.VectorSize == 0 {
		cfg.VectorStore.VectorSize = 1536 // text-embedding-3-small
	}
	if cfg.VectorStore.ChromemPath == "" {
		cfg.VectorStore.ChromemPath = "~/.config/pharmadd/vectorstore"
	}
	if cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = 6334
	}

	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}
	if cfg.Embeddings.BatchSize == 0 {
		cfg.Embeddings.BatchSize = 100
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = cfg.VectorStore.VectorSize
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o"
		default:
			cfg.LLM.Model = "claude-sonnet-4-5-20250929"
		}
	}
	if cfg.LLM.ReportMaxTokens == 0 {
		cfg.LLM.ReportMaxTokens = 4096
	}
	if cfg.LLM.ChatMaxTokens == 0 {
		cfg.LLM.ChatMaxTokens = 2048
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(2 * time.Minute)
	}

	if cfg.Sources.SECUserAgent == "" {
		cfg.Sources.SECUserAgent = DefaultSECUserAgent
	}
	if cfg.Sources.MaxTrials == 0 {
		cfg.Sources.MaxTrials = 100
	}
	if cfg.Sources.HTTPTimeout == 0 {
		cfg.Sources.HTTPTimeout = Duration(30 * time.Second)
	}

	if cfg.Report.MaxDevices == 0 {
		cfg.Report.MaxDevices = 10
	}
	if cfg.Report.ChatTopK == 0 {
		cfg.Report.ChatTopK = 10
	}
	if cfg.Report.FilingLimit == 0 {
		cfg.Report.FilingLimit = 10
	}
}
