// Package http provides the HTTP API for pharmadd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/logging"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

// ReportService builds reports and answers follow-up questions.
type ReportService interface {
	BuildReport(ctx context.Context, req report.Request) (string, error)
	Ask(ctx context.Context, subject, question string, history []generator.Message) (*report.Answer, error)
	AskNamespace(ctx context.Context, namespace, question string, history []generator.Message) (*report.Answer, error)
}

// PassageLister returns every passage indexed under a namespace.
type PassageLister interface {
	ForReport(ctx context.Context, namespace string) ([]passage.Passage, error)
}

// NamespaceStore lists namespaces and their sizes.
type NamespaceStore interface {
	ListCollections(ctx context.Context) ([]string, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Deps are the collaborators of a Server. Store is optional.
type Deps struct {
	Reports  ReportService
	Passages PassageLister
	Store    NamespaceStore
}

// Server provides HTTP endpoints for pharmadd.
type Server struct {
	echo     *echo.Echo
	reports  ReportService
	passages PassageLister
	store    NamespaceStore
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RequestTimeout bounds report builds and chat answers. Zero means none.
	RequestTimeout time.Duration

	// Version is reported by /api/v1/status.
	Version string
}

const maxBodySize = "1M"

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Reports == nil {
		return nil, fmt.Errorf("report service cannot be nil")
	}
	if deps.Passages == nil {
		return nil, fmt.Errorf("passage lister cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			if !requestIDPattern.MatchString(id) {
				return
			}
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	metrics, err := defaultAPIMetrics()
	if err != nil {
		logger.Warn("some API metrics are unavailable", zap.Error(err))
	}
	e.Use(metrics.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			fields := append(logging.ContextFields(c.Request().Context()),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", responseStatus(c, err)),
				zap.Duration("duration", duration),
			)
			logger.Info("http request", fields...)

			return err
		}
	})

	s := &Server{
		echo:     e,
		reports:  deps.Reports,
		passages: deps.Passages,
		store:    deps.Store,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/reports", s.handleReport)
	v1.POST("/chat", s.handleChat)
	v1.GET("/areas", s.handleAreas)
	v1.GET("/namespaces", s.handleListNamespaces)
	v1.GET("/namespaces/:name", s.handleNamespace)
	v1.GET("/namespaces/:name/passages", s.handlePassages)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports the version and, when a store is wired, the
// indexed namespaces.
func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Status: "ok", Version: s.config.Version}
	if s.store != nil {
		resp.Namespaces = CountNamespaces(c.Request().Context(), s.store)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAreas(c echo.Context) error {
	return c.JSON(http.StatusOK, AreasResponse{
		TherapeuticAreas: report.TherapeuticAreas,
		Phases:           report.Phases,
	})
}

// handleReport builds a due-diligence report.
func (s *Server) handleReport(c echo.Context) error {
	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid report request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject field is required")
	}
	namespace := report.SanitizeCollectionName(subject)

	ctx, cancel := s.requestContext(c)
	defer cancel()
	ctx = logging.WithNamespace(logging.WithSubject(ctx, subject), namespace)

	text, err := s.reports.BuildReport(ctx, report.Request{
		Subject:   subject,
		Condition: req.Condition,
		Phases:    req.Phases,
	})
	if err != nil {
		return s.toHTTPError(ctx, "report build failed", err)
	}

	return c.JSON(http.StatusOK, ReportResponse{
		Subject:   subject,
		Namespace: namespace,
		Report:    text,
	})
}

// handleChat answers a follow-up question. An explicit namespace wins over
// the subject.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var (
		answer *report.Answer
		err    error
	)
	switch {
	case req.Namespace != "":
		if report.SanitizeCollectionName(req.Namespace) != req.Namespace {
			return echo.NewHTTPError(http.StatusBadRequest, "namespace is not a valid collection name")
		}
		ctx = logging.WithNamespace(ctx, req.Namespace)
		answer, err = s.reports.AskNamespace(ctx, req.Namespace, req.Question, req.History)
	case strings.TrimSpace(req.Subject) != "":
		ctx = logging.WithSubject(ctx, req.Subject)
		answer, err = s.reports.Ask(ctx, req.Subject, req.Question, req.History)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "subject or namespace field is required")
	}
	if err != nil {
		return s.toHTTPError(ctx, "chat failed", err)
	}

	passages := answer.Passages
	if passages == nil {
		passages = []passage.Passage{}
	}
	return c.JSON(http.StatusOK, ChatResponse{
		Namespace: answer.Namespace,
		Answer:    answer.Answer,
		Passages:  passages,
	})
}

// handleNamespace returns the namespace a subject is indexed under.
func (s *Server) handleNamespace(c echo.Context) error {
	subject := strings.TrimSpace(c.Param("name"))
	if subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject is required")
	}
	return c.JSON(http.StatusOK, NamespaceResponse{
		Subject:   subject,
		Namespace: report.SanitizeCollectionName(subject),
	})
}

// handleListNamespaces lists indexed namespaces with their passage counts.
func (s *Server) handleListNamespaces(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "namespace listing is not available")
	}
	return c.JSON(http.StatusOK, NamespacesResponse{
		Namespaces: CountNamespaces(c.Request().Context(), s.store),
	})
}

// handlePassages returns every passage indexed under a namespace.
func (s *Server) handlePassages(c echo.Context) error {
	namespace := c.Param("name")
	if report.SanitizeCollectionName(namespace) != namespace {
		return echo.NewHTTPError(http.StatusBadRequest, "namespace is not a valid collection name")
	}

	ctx := logging.WithNamespace(c.Request().Context(), namespace)
	passages, err := s.passages.ForReport(ctx, namespace)
	if err != nil {
		return s.toHTTPError(ctx, "listing passages failed", err)
	}
	if passages == nil {
		passages = []passage.Passage{}
	}
	return c.JSON(http.StatusOK, PassagesResponse{
		Namespace: namespace,
		Count:     len(passages),
		Passages:  passages,
	})
}

func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if s.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// toHTTPError maps domain errors to HTTP status codes.
func (s *Server) toHTTPError(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, report.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrIndexing):
		s.logger.Error(msg, append(logging.ContextFields(ctx), zap.Error(err))...)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to index the collected data")
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn(msg, append(logging.ContextFields(ctx), zap.Error(err))...)
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled")
	default:
		s.logger.Error(msg, append(logging.ContextFields(ctx), zap.Error(err))...)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
