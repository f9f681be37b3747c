package generator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

var (
	// ErrEmptyResponse indicates a completion without usable text.
	ErrEmptyResponse = errors.New("language model returned an empty response")

	// ErrUnsupportedProvider indicates an unknown llm provider.
	ErrUnsupportedProvider = errors.New("unsupported llm provider")

	// ErrMissingAPIKey indicates a provider configured without credentials.
	ErrMissingAPIKey = errors.New("llm api key is required")
)

// NewModel builds the language model selected by cfg.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	client := &http.Client{Timeout: cfg.Timeout.Duration()}

	switch cfg.Provider {
	case ProviderAnthropic, "":
		if !cfg.APIKey.IsSet() {
			return nil, fmt.Errorf("%w for provider anthropic", ErrMissingAPIKey)
		}
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.APIKey.Value()),
			anthropic.WithModel(cfg.Model),
			anthropic.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic model: %w", err)
		}
		return llm, nil

	case ProviderOpenAI:
		if !cfg.APIKey.IsSet() && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w for provider openai", ErrMissingAPIKey)
		}
		token := cfg.APIKey.Value()
		if token == "" {
			// OpenAI-compatible servers behind BaseURL may not check it.
			token = "placeholder"
		}
		opts := []openai.Option{
			openai.WithToken(token),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai model: %w", err)
		}
		return llm, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
