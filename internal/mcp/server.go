package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

// ReportService builds reports and answers follow-up questions.
type ReportService interface {
	BuildReport(ctx context.Context, req report.Request) (string, error)
	Ask(ctx context.Context, subject, question string, history []generator.Message) (*report.Answer, error)
	AskNamespace(ctx context.Context, namespace, question string, history []generator.Message) (*report.Answer, error)
}

// Server is an MCP server backed by a ReportService.
type Server struct {
	mcp     *mcp.Server
	reports ReportService
	metrics *toolMetrics
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "pharmadd")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Logger for structured logging. It must not write to stdout.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "pharmadd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server.
func NewServer(cfg *Config, reports ReportService) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if reports == nil {
		return nil, fmt.Errorf("report service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	metrics, err := newToolMetrics(otel.Meter(instrumentationName))
	if err != nil {
		cfg.Logger.Warn("some MCP tool metrics are unavailable", zap.Error(err))
	}

	s := &Server{
		mcp:     mcpServer,
		reports: reports,
		metrics: metrics,
		logger:  cfg.Logger,
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves a single session on t until the client disconnects
// or ctx is done.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
