package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
	"github.com/fyrsmithlabs/pharmadd/internal/connectors/clinicaltrials"
	"github.com/fyrsmithlabs/pharmadd/internal/connectors/market"
	"github.com/fyrsmithlabs/pharmadd/internal/connectors/openfda"
	"github.com/fyrsmithlabs/pharmadd/internal/connectors/secedgar"
	"github.com/fyrsmithlabs/pharmadd/internal/embeddings"
	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/index"
	"github.com/fyrsmithlabs/pharmadd/internal/logging"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
	"github.com/fyrsmithlabs/pharmadd/internal/retriever"
	"github.com/fyrsmithlabs/pharmadd/internal/telemetry"
	"github.com/fyrsmithlabs/pharmadd/internal/vectorstore"
)

// app holds the wired services of one process.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     vectorstore.Store
	embedder  embeddings.Provider
	retriever *retriever.Retriever
	builder   *report.Builder
}

// loadConfig loads configuration from --config or the default location.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Stdio-bound commands log to stderr
// so stdout stays free for the report or the MCP protocol.
func newLogger(cfg *config.Config, tel *telemetry.Telemetry, toStderr bool) (*logging.Logger, error) {
	lcfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return nil, err
	}
	if toStderr {
		lcfg.Output.Stdout = false
		lcfg.Output.Stderr = true
	}
	return logging.NewLogger(lcfg, tel.LoggerProvider())
}

// newApp wires configuration into connectors, the vector index, the
// language model and the report builder.
//
// Order:
//  1. Telemetry and logger
//  2. Vector store and embedding provider
//  3. Index gateway and retriever
//  4. Language model and generator
//  5. Registry connectors and report builder
func newApp(ctx context.Context, cfg *config.Config, toStderr bool) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	a.logger, err = newLogger(cfg, a.telemetry, toStderr)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if h := a.telemetry.Health(); h.Degraded {
		a.logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", h.Problems))
	}
	logger := a.logger.Underlying()

	a.store, err = vectorstore.NewStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing vector store: %w", err)
	}

	a.embedder, err = embeddings.NewProviderFromConfig(cfg.Embeddings, logger)
	if err != nil {
		return nil, err
	}

	gateway := index.New(a.embedder, a.store, index.Config{
		BatchSize: cfg.Embeddings.BatchSize,
		Dimension: cfg.VectorStore.VectorSize,
	}, logger)
	a.retriever = retriever.New(gateway, logger)

	llm, err := generator.NewModel(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("initializing language model: %w", err)
	}
	gen := generator.New(llm, generator.Options{
		Model:           cfg.LLM.Model,
		ReportMaxTokens: cfg.LLM.ReportMaxTokens,
		ChatMaxTokens:   cfg.LLM.ChatMaxTokens,
	}, logger)

	a.builder, err = report.New(sourceDeps(cfg, logger, report.Deps{
		Index:     gateway,
		Retriever: a.retriever,
		Generator: gen,
	}), report.Options{
		MaxDevices:  cfg.Report.MaxDevices,
		RecordLimit: cfg.Report.RecordLimit,
		FilingLimit: cfg.Report.FilingLimit,
		ChatTopK:    cfg.Report.ChatTopK,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing report builder: %w", err)
	}

	a.logger.Info(ctx, "services initialized",
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("embedding_model", cfg.Embeddings.Model),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("market_data", cfg.Sources.MarketDataEnabled()),
	)
	return a, nil
}

// sourceDeps adds the registry connectors to deps.
func sourceDeps(cfg *config.Config, logger *zap.Logger, deps report.Deps) report.Deps {
	client := &http.Client{Timeout: cfg.Sources.HTTPTimeout.Duration()}

	deps.Trials = clinicaltrials.New(clinicaltrials.Config{
		BaseURL:    cfg.Sources.ClinicalTrialsURL,
		MaxResults: cfg.Sources.MaxTrials,
		HTTPClient: client,
	}, logger)
	deps.Regulatory = openfda.New(openfda.Config{
		BaseURL:    cfg.Sources.OpenFDAURL,
		APIKey:     cfg.Sources.OpenFDAAPIKey.Value(),
		HTTPClient: client,
	}, logger)
	deps.Filings = secedgar.New(secedgar.Config{
		TickersURL: cfg.Sources.SECTickersURL,
		DataURL:    cfg.Sources.SECDataURL,
		UserAgent:  cfg.Sources.SECUserAgent,
		HTTPClient: client,
	}, logger)
	if cfg.Sources.MarketDataEnabled() {
		deps.Market = market.New(market.Config{
			BaseURL:    cfg.Sources.MarketURL,
			HTTPClient: client,
		}, logger)
	}
	return deps
}

// Close releases the store, the embedder and telemetry, in that order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing vector store: %w", err))
		}
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing embedder: %w", err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
