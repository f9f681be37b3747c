package secedgar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// TickerLoader fetches the full company ticker table.
type TickerLoader func(ctx context.Context) ([]records.Company, error)

// TickerCache holds the company ticker table. It is loaded on first use and
// kept until Invalidate is called. Safe for concurrent use.
type TickerCache struct {
	load TickerLoader

	mu      sync.Mutex
	entries []records.Company
}

// NewTickerCache creates a cache backed by load.
func NewTickerCache(load TickerLoader) *TickerCache {
	return &TickerCache{load: load}
}

// Companies returns the cached table, loading it if needed. A failed load
// is not cached.
func (c *TickerCache) Companies(ctx context.Context) ([]records.Company, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries != nil {
		return c.entries, nil
	}
	entries, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ticker table: %w", err)
	}
	if entries == nil {
		entries = []records.Company{}
	}
	c.entries = entries
	return c.entries, nil
}

// Invalidate drops the cached table; the next lookup reloads it.
func (c *TickerCache) Invalidate() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

// Lookup finds a company by exact ticker first, then by case-insensitive
// name substring. It returns nil when nothing matches.
func (c *TickerCache) Lookup(ctx context.Context, query string) (*records.Company, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	companies, err := c.Companies(ctx)
	if err != nil {
		return nil, err
	}

	upper := strings.ToUpper(query)
	for _, co := range companies {
		if strings.ToUpper(co.Ticker) == upper {
			found := co
			return &found, nil
		}
	}
	lower := strings.ToLower(query)
	for _, co := range companies {
		if strings.Contains(strings.ToLower(co.Name), lower) {
			found := co
			return &found, nil
		}
	}
	return nil, nil
}

// companiesFromTable converts the upstream keyed table ("0", "1", ...) into
// a slice ordered by key so that lookups are deterministic.
func companiesFromTable(table map[string]tickerEntry) []records.Company {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := make([]records.Company, 0, len(keys))
	for _, k := range keys {
		e := table[k]
		out = append(out, records.Company{
			CIK:    PadCIK(fmt.Sprintf("%d", e.CIK)),
			Ticker: e.Ticker,
			Name:   e.Title,
		})
	}
	return out
}
