package report

import (
	"context"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// TrialSource searches a clinical trial registry. Implementations paginate
// internally and return a flat list.
type TrialSource interface {
	SearchBySponsor(ctx context.Context, name, condition string) ([]records.Trial, error)
	SearchByDrug(ctx context.Context, name, condition string) ([]records.Trial, error)
}

// RegulatorySource queries drug and device regulator data. A limit of zero
// selects the implementation's default. "No matches" is an empty result,
// never an error.
type RegulatorySource interface {
	SearchApprovals(ctx context.Context, term string, limit int) ([]records.DrugApproval, error)
	SearchLabels(ctx context.Context, drug string, limit int) ([]records.DrugLabel, error)
	AdverseEventsSummary(ctx context.Context, drug string, limit int) (records.AdverseEventSummary, error)
	SearchDeviceClearances(ctx context.Context, term string, limit int) ([]records.DeviceClearance, error)
	DeviceAdverseEventsSummary(ctx context.Context, device string, limit int) (records.DeviceAdverseEventSummary, error)
	SearchDeviceRecalls(ctx context.Context, company string, limit int) ([]records.DeviceRecall, error)
}

// FilingsSource queries a company filings registry. LookupCompany returns
// nil when nothing matches.
type FilingsSource interface {
	LookupCompany(ctx context.Context, query string) (*records.Company, error)
	Filings(ctx context.Context, cik string, types []string, limit int) ([]records.Filing, error)
	CompanyFacts(ctx context.Context, cik string) (*records.FinancialFacts, error)
}

// MarketSource returns a market snapshot, or nil when the ticker has none.
type MarketSource interface {
	Snapshot(ctx context.Context, ticker string) (*records.MarketSnapshot, error)
}

// Indexer stores passages in a namespace.
type Indexer interface {
	EmbedAndStore(ctx context.Context, passages []passage.Passage, namespace string) error
}

// Retriever reads passages back from a namespace.
type Retriever interface {
	ForReport(ctx context.Context, namespace string) ([]passage.Passage, error)
	ForChat(ctx context.Context, namespace, query string, k int) ([]passage.Passage, error)
}

// Generator synthesizes text from passages.
type Generator interface {
	GenerateReport(ctx context.Context, subject string, passages []passage.Passage) string
	GenerateChatResponse(ctx context.Context, question string, passages []passage.Passage, history []generator.Message) string
}
