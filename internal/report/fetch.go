package report

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// Source identifiers used in metrics labels.
const (
	sourceClinicalTrials = "clinicaltrials"
	sourceOpenFDA        = "openfda"
	sourceSECEdgar       = "secedgar"
	sourceMarket         = "market"
)

// maxLookupsInFlight bounds the per-drug and per-device openFDA lookups of
// one build.
const maxLookupsInFlight = 4

type drugEvents struct {
	drug    string
	summary records.AdverseEventSummary
}

type deviceEvents struct {
	device  string
	summary records.DeviceAdverseEventSummary
}

// collection accumulates fan-out results. Every field is guarded by mu.
type collection struct {
	mu sync.Mutex

	trials     []records.Trial
	seenTrials map[string]struct{}

	approvals    []records.DrugApproval
	labels       []records.DrugLabel
	drugEvents   []drugEvents
	clearances   []records.DeviceClearance
	deviceEvents []deviceEvents
	recalls      []records.DeviceRecall

	company *records.Company
	filings []records.Filing
	facts   *records.FinancialFacts
	market  *records.MarketSnapshot

	errs []string
}

func newCollection() *collection {
	return &collection{seenTrials: make(map[string]struct{})}
}

// addTrials merges trials, dropping registry IDs already seen. Trials
// without an ID cannot be matched and are always kept.
func (c *collection) addTrials(trials []records.Trial) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trials {
		if t.NCTID != "" {
			if _, dup := c.seenTrials[t.NCTID]; dup {
				continue
			}
			c.seenTrials[t.NCTID] = struct{}{}
		}
		c.trials = append(c.trials, t)
	}
}

func (c *collection) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// fail records a recovered upstream failure.
func (b *Builder) fail(c *collection, source, what string, err error) {
	b.metrics.SourceFailuresTotal.WithLabelValues(source).Inc()
	b.logger.Warn("source lookup failed",
		zap.String("source", source),
		zap.String("lookup", what),
		zap.Error(err))
	c.locked(func() {
		c.errs = append(c.errs, fmt.Sprintf("%s: %v", what, err))
	})
}

// fetch queries every configured source for subject. Failures never stop
// the other lookups; they are recorded on the returned collection.
//
// The errgroup goroutines in this file return nil: a failed lookup is
// recorded by fail and must not cancel its siblings, so Wait has no error
// to report.
func (b *Builder) fetch(ctx context.Context, subject, condition string) *collection {
	c := newCollection()
	var g errgroup.Group

	if b.trials != nil {
		g.Go(func() error {
			trials, err := b.trials.SearchBySponsor(ctx, subject, condition)
			if err != nil {
				b.fail(c, sourceClinicalTrials, "ClinicalTrials.gov sponsor search", err)
				return nil
			}
			c.addTrials(trials)
			return nil
		})
		g.Go(func() error {
			trials, err := b.trials.SearchByDrug(ctx, subject, condition)
			if err != nil {
				b.fail(c, sourceClinicalTrials, "ClinicalTrials.gov drug search", err)
				return nil
			}
			c.addTrials(trials)
			return nil
		})
	}

	if b.regulatory != nil {
		g.Go(func() error {
			b.fetchDrugs(ctx, c, subject)
			return nil
		})
		g.Go(func() error {
			b.fetchDevices(ctx, c, subject)
			return nil
		})
		g.Go(func() error {
			recalls, err := b.regulatory.SearchDeviceRecalls(ctx, subject, b.opts.RecordLimit)
			if err != nil {
				b.fail(c, sourceOpenFDA, "FDA device recalls", err)
				return nil
			}
			c.locked(func() { c.recalls = recalls })
			return nil
		})
	}

	if b.filings != nil {
		g.Go(func() error {
			b.fetchFinancials(ctx, c, subject)
			return nil
		})
	}

	_ = g.Wait()
	return c
}

// fetchDrugs looks up approvals, then labels and adverse events for every
// distinct brand name in parallel.
func (b *Builder) fetchDrugs(ctx context.Context, c *collection, subject string) {
	approvals, err := b.regulatory.SearchApprovals(ctx, subject, b.opts.RecordLimit)
	if err != nil {
		b.fail(c, sourceOpenFDA, "FDA drug approvals", err)
		return
	}
	c.locked(func() { c.approvals = approvals })

	brands := make([]string, 0, len(approvals))
	for _, a := range approvals {
		brand := strings.TrimSpace(a.BrandName)
		if brand != "" && !slices.Contains(brands, brand) {
			brands = append(brands, brand)
		}
	}

	// Each goroutine owns one slot, so results keep brand order.
	labels := make([][]records.DrugLabel, len(brands))
	events := make([]*records.AdverseEventSummary, len(brands))

	var g errgroup.Group
	g.SetLimit(maxLookupsInFlight)
	for i, brand := range brands {
		g.Go(func() error {
			ls, err := b.regulatory.SearchLabels(ctx, brand, b.opts.RecordLimit)
			if err != nil {
				b.fail(c, sourceOpenFDA, "FDA labels for "+brand, err)
				return nil
			}
			labels[i] = ls
			return nil
		})
		g.Go(func() error {
			summary, err := b.regulatory.AdverseEventsSummary(ctx, brand, b.opts.RecordLimit)
			if err != nil {
				b.fail(c, sourceOpenFDA, "FDA adverse events for "+brand, err)
				return nil
			}
			events[i] = &summary
			return nil
		})
	}
	_ = g.Wait()

	c.locked(func() {
		for i, brand := range brands {
			c.labels = append(c.labels, labels[i]...)
			if events[i] != nil {
				c.drugEvents = append(c.drugEvents, drugEvents{drug: brand, summary: *events[i]})
			}
		}
	})
}

// fetchDevices looks up clearances, then MAUDE summaries for at most
// MaxDevices distinct device names.
func (b *Builder) fetchDevices(ctx context.Context, c *collection, subject string) {
	clearances, err := b.regulatory.SearchDeviceClearances(ctx, subject, b.opts.RecordLimit)
	if err != nil {
		b.fail(c, sourceOpenFDA, "FDA device clearances", err)
		return
	}
	c.locked(func() { c.clearances = clearances })

	devices := make([]string, 0, b.opts.MaxDevices)
	for _, cl := range clearances {
		if len(devices) == b.opts.MaxDevices {
			break
		}
		name := strings.TrimSpace(cl.DeviceName)
		if name != "" && !slices.Contains(devices, name) {
			devices = append(devices, name)
		}
	}

	events := make([]*records.DeviceAdverseEventSummary, len(devices))
	var g errgroup.Group
	g.SetLimit(maxLookupsInFlight)
	for i, device := range devices {
		g.Go(func() error {
			summary, err := b.regulatory.DeviceAdverseEventsSummary(ctx, device, b.opts.RecordLimit)
			if err != nil {
				b.fail(c, sourceOpenFDA, "FDA device adverse events for "+device, err)
				return nil
			}
			events[i] = &summary
			return nil
		})
	}
	_ = g.Wait()

	c.locked(func() {
		for i, device := range devices {
			if events[i] != nil {
				c.deviceEvents = append(c.deviceEvents, deviceEvents{device: device, summary: *events[i]})
			}
		}
	})
}

// fetchFinancials resolves the subject in the filings registry, then pulls
// filings, company facts and market data in parallel. No match is not an
// error.
func (b *Builder) fetchFinancials(ctx context.Context, c *collection, subject string) {
	company, err := b.filings.LookupCompany(ctx, subject)
	if err != nil {
		b.fail(c, sourceSECEdgar, "SEC EDGAR company lookup", err)
		return
	}
	if company == nil {
		b.logger.Debug("no filings registry match", zap.String("subject", subject))
		return
	}
	c.locked(func() { c.company = company })

	var g errgroup.Group
	g.Go(func() error {
		filings, err := b.filings.Filings(ctx, company.CIK, b.opts.FilingTypes, b.opts.FilingLimit)
		if err != nil {
			b.fail(c, sourceSECEdgar, "SEC EDGAR filings", err)
			return nil
		}
		c.locked(func() { c.filings = filings })
		return nil
	})
	g.Go(func() error {
		facts, err := b.filings.CompanyFacts(ctx, company.CIK)
		if err != nil {
			b.fail(c, sourceSECEdgar, "SEC EDGAR company facts", err)
			return nil
		}
		c.locked(func() { c.facts = facts })
		return nil
	})
	if b.market != nil && company.Ticker != "" {
		g.Go(func() error {
			snapshot, err := b.market.Snapshot(ctx, company.Ticker)
			if err != nil {
				b.fail(c, sourceMarket, "Market data for "+company.Ticker, err)
				return nil
			}
			c.locked(func() { c.market = snapshot })
			return nil
		})
	}
	_ = g.Wait()
}
