// Package openfda is a client for the openFDA drug and device endpoints.
//
// openFDA answers a search without matches with HTTP 404 and an "error"
// object; both are reported here as empty results rather than errors.
package openfda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/connectors"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// DefaultBaseURL is the openFDA API root.
const DefaultBaseURL = "https://api.fda.gov"

// Default result caps per lookup.
const (
	DefaultApprovalLimit     = 50
	DefaultLabelLimit        = 10
	DefaultEventLimit        = 10
	DefaultClearanceLimit    = 20
	DefaultDeviceEventLimit  = 10
	DefaultRecallLimit       = 20
	maxLimit                 = 99
	maxReactionTerms         = 20
	maxEventNarrativeSamples = 5
	maxNarrativeRunes        = 300
)

// Config configures the client.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client queries openFDA.
type Client struct {
	baseURL string
	apiKey  string
	fetcher *connectors.Fetcher
	logger  *zap.Logger
}

// New creates a client. An empty APIKey uses the anonymous quota.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("openfda")
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		fetcher: connectors.NewFetcher(cfg.HTTPClient, logger, nil),
		logger:  logger,
	}
}

// clampLimit keeps limit within the range openFDA accepts for a search.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	return min(limit, maxLimit)
}

// phrase quotes a term for an openFDA search expression.
func phrase(field, term string) string {
	term = strings.ReplaceAll(term, `"`, "")
	return fmt.Sprintf(`%s:"%s"`, field, term)
}

// anyOf joins clauses so that any of them may match.
func anyOf(clauses ...string) string {
	return strings.Join(clauses, " ")
}

// search runs a query against path and decodes into out. It reports whether
// upstream had any matches.
func (c *Client) search(ctx context.Context, endpoint, path, query string, limit int, out searchEnvelope) (bool, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("limit", strconv.Itoa(limit))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	err := c.fetcher.GetJSON(ctx, endpoint, c.baseURL+path, params, out)
	if errors.Is(err, connectors.ErrNotFound) {
		c.logger.Debug("no matches", zap.String("endpoint", endpoint), zap.String("query", query))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out.upstreamError() != nil {
		c.logger.Debug("upstream error object",
			zap.String("endpoint", endpoint),
			zap.String("code", out.upstreamError().Code))
		return false, nil
	}
	return true, nil
}

// SearchApprovals returns Drugs@FDA applications whose manufacturer or brand
// matches term.
func (c *Client) SearchApprovals(ctx context.Context, term string, limit int) ([]records.DrugApproval, error) {
	var resp drugsFDAResponse
	query := anyOf(phrase("openfda.manufacturer_name", term), phrase("openfda.brand_name", term))
	ok, err := c.search(ctx, "openfda.drugsfda", "/drug/drugsfda.json", query, clampLimit(limit, DefaultApprovalLimit), &resp)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]records.DrugApproval, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// SearchLabels returns structured product labels whose brand or generic
// name matches drug.
func (c *Client) SearchLabels(ctx context.Context, drug string, limit int) ([]records.DrugLabel, error) {
	var resp labelResponse
	query := anyOf(phrase("openfda.brand_name", drug), phrase("openfda.generic_name", drug))
	ok, err := c.search(ctx, "openfda.label", "/drug/label.json", query, clampLimit(limit, DefaultLabelLimit), &resp)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]records.DrugLabel, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// AdverseEventsSummary summarizes FAERS reports that name drug.
func (c *Client) AdverseEventsSummary(ctx context.Context, drug string, limit int) (records.AdverseEventSummary, error) {
	var resp drugEventResponse
	query := phrase("patient.drug.openfda.brand_name", drug)
	ok, err := c.search(ctx, "openfda.event", "/drug/event.json", query, clampLimit(limit, DefaultEventLimit), &resp)
	if err != nil || !ok {
		return records.AdverseEventSummary{}, err
	}
	return resp.summarize(), nil
}

// SearchDeviceClearances returns 510(k) decisions whose applicant or device
// name matches term.
func (c *Client) SearchDeviceClearances(ctx context.Context, term string, limit int) ([]records.DeviceClearance, error) {
	var resp clearanceResponse
	query := anyOf(phrase("applicant", term), phrase("device_name", term))
	ok, err := c.search(ctx, "openfda.510k", "/device/510k.json", query, clampLimit(limit, DefaultClearanceLimit), &resp)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]records.DeviceClearance, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// DeviceAdverseEventsSummary summarizes MAUDE reports for a device brand.
func (c *Client) DeviceAdverseEventsSummary(ctx context.Context, device string, limit int) (records.DeviceAdverseEventSummary, error) {
	var resp deviceEventResponse
	query := anyOf(phrase("device.brand_name", device), phrase("device.generic_name", device))
	ok, err := c.search(ctx, "openfda.device_event", "/device/event.json", query, clampLimit(limit, DefaultDeviceEventLimit), &resp)
	if err != nil || !ok {
		return records.DeviceAdverseEventSummary{}, err
	}
	return resp.summarize(), nil
}

// SearchDeviceRecalls returns recalls initiated by a recalling firm matching
// company.
func (c *Client) SearchDeviceRecalls(ctx context.Context, company string, limit int) ([]records.DeviceRecall, error) {
	var resp recallResponse
	query := phrase("recalling_firm", company)
	ok, err := c.search(ctx, "openfda.device_recall", "/device/recall.json", query, clampLimit(limit, DefaultRecallLimit), &resp)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]records.DeviceRecall, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.toRecord())
	}
	return out, nil
}
