// Package connectors holds the HTTP plumbing shared by the upstream registry
// clients (ClinicalTrials.gov, openFDA, SEC EDGAR and the market data feed).
//
// Each registry client lives in its own sub-package and turns upstream JSON
// into typed records. Transport failures and non-2xx responses surface as
// errors; "no matches" handling is decided by each client.
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

var tracer = otel.Tracer("pharmadd.connectors")

// ErrNotFound is matched by a StatusError carrying HTTP 404.
var ErrNotFound = errors.New("upstream reported no matches")

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Is reports whether the status error denotes a missing resource.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Fetcher performs instrumented JSON GET requests.
type Fetcher struct {
	client  *http.Client
	header  http.Header
	logger  *zap.Logger
	metrics *Metrics
}

// NewFetcher creates a Fetcher. A nil client gets DefaultTimeout and a nil
// logger is replaced with a no-op logger. header is sent on every request.
func NewFetcher(client *http.Client, logger *zap.Logger, header http.Header) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if header == nil {
		header = http.Header{}
	}
	return &Fetcher{
		client:  client,
		header:  header,
		logger:  logger,
		metrics: NewMetrics(logger),
	}
}

// GetJSON fetches base?params and decodes the JSON body into out. endpoint
// names the call in errors, logs, spans and metrics.
func (f *Fetcher) GetJSON(ctx context.Context, endpoint, base string, params url.Values, out any) (err error) {
	ctx, span := tracer.Start(ctx, "connectors.GetJSON")
	defer span.End()
	span.SetAttributes(attribute.String("endpoint", endpoint))

	start := time.Now()
	status := 0
	defer func() {
		f.metrics.RecordRequest(ctx, endpoint, status, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	target := base
	if len(params) > 0 {
		target = base + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", endpoint, err)
	}
	for k, vs := range f.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	f.logger.Debug("upstream response",
		zap.String("endpoint", endpoint),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", endpoint, err)
	}
	return nil
}
