// Package market fetches point-in-time quotes from the Yahoo Finance chart
// endpoint.
package market

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/connectors"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// DefaultBaseURL is the chart endpoint root; the ticker is appended.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

const defaultUserAgent = "Mozilla/5.0 (compatible; pharmadd/1.0)"

// Config configures the client.
type Config struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Client fetches market snapshots.
type Client struct {
	baseURL string
	fetcher *connectors.Fetcher
}

// New creates a client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetcher: connectors.NewFetcher(cfg.HTTPClient, logger.Named("market"), http.Header{
			"User-Agent": {cfg.UserAgent},
		}),
	}
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	ExchangeName         string   `json:"exchangeName"`
	FullExchangeName     string   `json:"fullExchangeName"`
	LongName             string   `json:"longName"`
	ShortName            string   `json:"shortName"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	RegularMarketVolume  *float64 `json:"regularMarketVolume"`
	MarketCapitalization *float64 `json:"marketCap"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Snapshot returns the current quote for ticker. A ticker without market
// data yields nil and no error.
func (c *Client) Snapshot(ctx context.Context, ticker string) (*records.MarketSnapshot, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	var resp chartResponse
	err := c.fetcher.GetJSON(ctx, "market.chart", c.baseURL+"/"+url.PathEscape(ticker), params, &resp)
	if errors.Is(err, connectors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	m := resp.Chart.Result[0].Meta
	if m.RegularMarketPrice == nil {
		return nil, nil
	}

	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	exchange := m.FullExchangeName
	if exchange == "" {
		exchange = m.ExchangeName
	}
	prev := m.PreviousClose
	if prev == nil {
		prev = m.ChartPreviousClose
	}
	symbol := m.Symbol
	if symbol == "" {
		symbol = ticker
	}

	return &records.MarketSnapshot{
		Ticker:           symbol,
		Name:             name,
		Currency:         m.Currency,
		Exchange:         exchange,
		CurrentPrice:     m.RegularMarketPrice,
		PreviousClose:    prev,
		FiftyTwoWeekHigh: m.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  m.FiftyTwoWeekLow,
		DayVolume:        m.RegularMarketVolume,
		MarketCap:        m.MarketCapitalization,
	}, nil
}
