// Package clinicaltrials is a client for the ClinicalTrials.gov v2 studies API.
package clinicaltrials

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/connectors"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

const (
	// DefaultBaseURL is the v2 studies endpoint.
	DefaultBaseURL = "https://clinicaltrials.gov/api/v2/studies"

	// DefaultMaxResults caps a single search across all pages.
	DefaultMaxResults = 100

	maxPageSize = 100
)

// Config configures the client.
type Config struct {
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

// Client searches registered studies.
type Client struct {
	baseURL    string
	maxResults int
	fetcher    *connectors.Fetcher
}

// New creates a client. Zero config values take their defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		fetcher:    connectors.NewFetcher(cfg.HTTPClient, logger.Named("clinicaltrials"), nil),
	}
}

// SearchBySponsor returns studies whose sponsor matches name. A non-empty
// condition narrows the search to that condition.
func (c *Client) SearchBySponsor(ctx context.Context, name, condition string) ([]records.Trial, error) {
	return c.search(ctx, "query.spons", name, condition)
}

// SearchByDrug returns studies whose intervention matches name.
func (c *Client) SearchByDrug(ctx context.Context, name, condition string) ([]records.Trial, error) {
	return c.search(ctx, "query.intr", name, condition)
}

func (c *Client) search(ctx context.Context, field, value, condition string) ([]records.Trial, error) {
	var trials []records.Trial
	pageToken := ""

	for len(trials) < c.maxResults {
		params := url.Values{}
		params.Set(field, value)
		if condition != "" {
			params.Set("query.cond", condition)
		}
		params.Set("pageSize", strconv.Itoa(min(c.maxResults-len(trials), maxPageSize)))
		params.Set("format", "json")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page studiesResponse
		if err := c.fetcher.GetJSON(ctx, "clinicaltrials.studies", c.baseURL, params, &page); err != nil {
			return nil, err
		}
		for _, s := range page.Studies {
			trials = append(trials, s.toRecord())
		}

		pageToken = page.NextPageToken
		if pageToken == "" || len(page.Studies) == 0 {
			break
		}
	}

	if len(trials) > c.maxResults {
		trials = trials[:c.maxResults]
	}
	return trials, nil
}
