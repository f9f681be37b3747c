package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

var anyArg = mock.Anything

type fixture struct {
	trials     *MockTrials
	regulatory *MockRegulatory
	filings    *MockFilings
	market     *MockMarket
	index      *MockIndex
	retriever  *MockRetriever
	generator  *MockGenerator
}

func newFixture() *fixture {
	return &fixture{
		trials:     &MockTrials{},
		regulatory: &MockRegulatory{},
		filings:    &MockFilings{},
		market:     &MockMarket{},
		index:      &MockIndex{},
		retriever:  &MockRetriever{},
		generator:  &MockGenerator{},
	}
}

// emptySources registers "no data" answers for every lookup not already
// stubbed. Earlier expectations take precedence.
func (f *fixture) emptySources() {
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return([]records.Trial{}, nil).Maybe()
	f.trials.On("SearchByDrug", anyArg, anyArg, anyArg).Return([]records.Trial{}, nil).Maybe()
	f.regulatory.On("SearchApprovals", anyArg, anyArg, anyArg).Return([]records.DrugApproval{}, nil).Maybe()
	f.regulatory.On("SearchDeviceClearances", anyArg, anyArg, anyArg).Return([]records.DeviceClearance{}, nil).Maybe()
	f.regulatory.On("SearchDeviceRecalls", anyArg, anyArg, anyArg).Return([]records.DeviceRecall{}, nil).Maybe()
	f.filings.On("LookupCompany", anyArg, anyArg).Return(nil, nil).Maybe()
}

func (f *fixture) builder(t *testing.T, opts Options) *Builder {
	t.Helper()
	b, err := New(Deps{
		Trials:     f.trials,
		Regulatory: f.regulatory,
		Filings:    f.filings,
		Market:     f.market,
		Index:      f.index,
		Retriever:  f.retriever,
		Generator:  f.generator,
	}, opts, zap.NewNop())
	require.NoError(t, err)
	return b
}

func trial(nct string, phases ...string) records.Trial {
	return records.Trial{NCTID: nct, Title: "Study " + nct, Phase: phases, Sponsor: "Acme"}
}

func bySource(ps []passage.Passage, source string) []passage.Passage {
	var out []passage.Passage
	for _, p := range ps {
		if p.Source() == source {
			out = append(out, p)
		}
	}
	return out
}

// captureIndexed records the passages handed to EmbedAndStore.
func (f *fixture) captureIndexed(ns string, err error) *[]passage.Passage {
	var got []passage.Passage
	f.index.On("EmbedAndStore", anyArg, mock.Anything, ns).
		Run(func(args mock.Arguments) { got = args.Get(1).([]passage.Passage) }).
		Return(err).Once()
	return &got
}

func TestBuildReport_EndToEnd(t *testing.T) {
	f := newFixture()
	enrollment := 1200
	f.trials.On("SearchBySponsor", anyArg, "IntegrationPharma", "").Return([]records.Trial{{
		NCTID:      "NCT99999999",
		Title:      "Phase 3 Study of MagicDrug in Oncology",
		Status:     "ACTIVE_NOT_RECRUITING",
		Phase:      []string{"PHASE3"},
		Enrollment: &enrollment,
		Sponsor:    "IntegrationPharma",
	}}, nil).Once()
	f.trials.On("SearchByDrug", anyArg, "IntegrationPharma", "").Return([]records.Trial{}, nil).Once()
	f.regulatory.On("SearchApprovals", anyArg, "IntegrationPharma", 0).Return([]records.DrugApproval{{
		ApplicationNumber: "NDA999999",
		BrandName:         "MagicDrug",
		GenericName:       "magicdruginib",
		SponsorName:       "IntegrationPharma",
	}}, nil).Once()
	f.regulatory.On("SearchLabels", anyArg, "MagicDrug", 0).Return([]records.DrugLabel{{
		BrandName:        "MagicDrug",
		Indications:      "For treatment of HER2+ breast cancer",
		Warnings:         "Monitor liver function",
		AdverseReactions: "Common: fatigue, nausea",
	}}, nil).Once()
	f.regulatory.On("AdverseEventsSummary", anyArg, "MagicDrug", 0).Return(records.AdverseEventSummary{
		TotalReports: 250, SeriousCount: 12, SampleReactions: []string{"Fatigue", "Nausea"},
	}, nil).Once()
	f.emptySources()

	indexed := f.captureIndexed("integrationpharma", nil)
	f.retriever.On("ForReport", anyArg, "integrationpharma").Return([]passage.Passage{}, nil).Once()
	f.generator.On("GenerateReport", anyArg, "IntegrationPharma", mock.Anything).
		Return("## Due Diligence Report: IntegrationPharma\n\n### Pipeline Overview\n1 active Phase 3 program.").Once()

	b := f.builder(t, Options{})
	report, err := b.BuildReport(context.Background(), Request{Subject: "IntegrationPharma"})
	require.NoError(t, err)

	assert.Contains(t, report, "Due Diligence Report")
	assert.Contains(t, report, "IntegrationPharma")
	f.trials.AssertNumberOfCalls(t, "SearchBySponsor", 1)
	f.trials.AssertNumberOfCalls(t, "SearchByDrug", 1)
	f.regulatory.AssertNumberOfCalls(t, "SearchLabels", 1)
	f.regulatory.AssertNumberOfCalls(t, "AdverseEventsSummary", 1)
	f.index.AssertNumberOfCalls(t, "EmbedAndStore", 1)
	assert.GreaterOrEqual(t, len(*indexed), 3)

	// Index read came back empty, so generation saw the in-memory passages.
	generated := f.generator.Calls[0].Arguments.Get(2).([]passage.Passage)
	assert.Equal(t, *indexed, generated)
	assert.Len(t, bySource(generated, passage.SourceClinicalTrials), 1)
	assert.Len(t, bySource(generated, passage.SourceFDAAdverseEvents), 1)
}

func TestBuildReport_DeduplicatesTrials(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).
		Return([]records.Trial{trial("NCT1"), trial("NCT2"), trial("NCT3")}, nil)
	f.trials.On("SearchByDrug", anyArg, anyArg, anyArg).
		Return([]records.Trial{trial("NCT2"), trial("NCT3"), trial("NCT4")}, nil)
	f.emptySources()
	indexed := f.captureIndexed("acme", nil)
	f.retriever.On("ForReport", anyArg, "acme").Return(nil, nil)
	f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)

	trials := bySource(*indexed, passage.SourceClinicalTrials)
	ids := make(map[string]bool)
	for _, p := range trials {
		ids[p.Metadata[passage.MetaNCTID]] = true
	}
	assert.Len(t, trials, 4)
	assert.Len(t, ids, 4)
}

func TestBuildReport_PhaseFilter(t *testing.T) {
	tests := []struct {
		name   string
		phases []string
		want   []string
	}{
		{"phase 3 only", []string{"Phase 3"}, []string{"NCT3"}},
		{"short spelling", []string{"3"}, []string{"NCT3"}},
		{"all four is no filter", []string{"Phase 1", "Phase 2", "Phase 3", "Phase 4"}, []string{"NCT1", "NCT3"}},
		{"none", nil, []string{"NCT1", "NCT3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).
				Return([]records.Trial{trial("NCT1", "PHASE1"), trial("NCT3", "PHASE3")}, nil)
			f.emptySources()
			indexed := f.captureIndexed("acme", nil)
			f.retriever.On("ForReport", anyArg, anyArg).Return(nil, nil)
			f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

			_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme", Phases: tt.phases})
			require.NoError(t, err)

			var got []string
			for _, p := range bySource(*indexed, passage.SourceClinicalTrials) {
				got = append(got, p.Metadata[passage.MetaNCTID])
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestBuildReport_NoDataShortCircuits(t *testing.T) {
	f := newFixture()
	f.emptySources()

	report, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Nobody Inc"})
	require.NoError(t, err)

	assert.Equal(t, "No data found for 'Nobody Inc' in ClinicalTrials.gov, FDA, or SEC EDGAR databases.", report)
	f.index.AssertNotCalled(t, "EmbedAndStore", anyArg, anyArg, anyArg)
	f.retriever.AssertNotCalled(t, "ForReport", anyArg, anyArg)
	f.generator.AssertNotCalled(t, "GenerateReport", anyArg, anyArg, anyArg)
}

func TestBuildReport_NoDataListsErrors(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return(nil, errors.New("status 503"))
	f.regulatory.On("SearchApprovals", anyArg, anyArg, anyArg).Return(nil, errors.New("timeout"))
	f.emptySources()

	report, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report, "No data found for 'Acme'"))
	assert.Contains(t, report, "\n\nErrors encountered:\n- ")
	assert.Contains(t, report, "ClinicalTrials.gov sponsor search: status 503")
	assert.Contains(t, report, "FDA drug approvals: timeout")
	f.index.AssertNotCalled(t, "EmbedAndStore", anyArg, anyArg, anyArg)
}

func TestBuildReport_PartialFailureStillGenerates(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return(nil, errors.New("boom"))
	f.trials.On("SearchByDrug", anyArg, anyArg, anyArg).Return([]records.Trial{trial("NCT7")}, nil)
	f.emptySources()
	f.captureIndexed("acme", nil)
	f.retriever.On("ForReport", anyArg, "acme").Return(nil, nil)
	f.generator.On("GenerateReport", anyArg, "Acme", anyArg).Return("## Due Diligence Report: Acme")

	report, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "## Due Diligence Report: Acme", report)
	assert.NotContains(t, report, "boom", "source errors are logged, not reported")
}

func TestBuildReport_IndexingFailure(t *testing.T) {
	f := newFixture()
	cause := errors.New("embedding batch 0: quota")
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return([]records.Trial{trial("NCT1")}, nil)
	f.emptySources()
	f.captureIndexed("acme", cause)

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexing)
	assert.ErrorIs(t, err, cause)
	f.generator.AssertNotCalled(t, "GenerateReport", anyArg, anyArg, anyArg)
}

func TestBuildReport_UsesIndexedPassages(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return([]records.Trial{trial("NCT1")}, nil)
	f.emptySources()
	f.captureIndexed("acme", nil)
	stored := []passage.Passage{{Text: "stored earlier", Metadata: map[string]string{passage.MetaSourceURL: "u"}}}
	f.retriever.On("ForReport", anyArg, "acme").Return(stored, nil)
	f.generator.On("GenerateReport", anyArg, "Acme", stored).Return("report").Once()

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)
	f.generator.AssertExpectations(t)
}

func TestBuildReport_RetrievalErrorFallsBack(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return([]records.Trial{trial("NCT1")}, nil)
	f.emptySources()
	indexed := f.captureIndexed("acme", nil)
	f.retriever.On("ForReport", anyArg, "acme").Return(nil, errors.New("read failed"))
	f.generator.On("GenerateReport", anyArg, "Acme", anyArg).Return("report")

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, *indexed, f.generator.Calls[0].Arguments.Get(2))
}

func TestBuildReport_SkipsNilConnectors(t *testing.T) {
	trials := &MockTrials{}
	trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return([]records.Trial{trial("NCT1")}, nil)
	trials.On("SearchByDrug", anyArg, anyArg, anyArg).Return(nil, nil)
	index := &MockIndex{}
	index.On("EmbedAndStore", anyArg, anyArg, "acme").Return(nil)
	retr := &MockRetriever{}
	retr.On("ForReport", anyArg, anyArg).Return(nil, nil)
	gen := &MockGenerator{}
	gen.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

	b, err := New(Deps{Trials: trials, Index: index, Retriever: retr, Generator: gen}, Options{}, nil)
	require.NoError(t, err)

	report, err := b.BuildReport(context.Background(), Request{Subject: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "report", report)
}

func TestBuildReport_DeviceCap(t *testing.T) {
	f := newFixture()
	var clearances []records.DeviceClearance
	for i := 0; i < 15; i++ {
		clearances = append(clearances, records.DeviceClearance{
			KNumber:    fmt.Sprintf("K%06d", i),
			DeviceName: fmt.Sprintf("Device %d", i%12),
		})
	}
	f.regulatory.On("SearchDeviceClearances", anyArg, anyArg, anyArg).Return(clearances, nil)
	f.regulatory.On("DeviceAdverseEventsSummary", anyArg, anyArg, anyArg).Return(records.DeviceAdverseEventSummary{TotalReports: 3}, nil)
	f.emptySources()
	indexed := f.captureIndexed("medco", nil)
	f.retriever.On("ForReport", anyArg, anyArg).Return(nil, nil)
	f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

	_, err := f.builder(t, Options{MaxDevices: 3}).BuildReport(context.Background(), Request{Subject: "MedCo"})
	require.NoError(t, err)

	f.regulatory.AssertNumberOfCalls(t, "DeviceAdverseEventsSummary", 3)
	assert.Len(t, bySource(*indexed, passage.SourceDeviceClearance), 15)
	assert.Len(t, bySource(*indexed, passage.SourceDeviceAdverseEvent), 3)
}

func TestBuildReport_Financials(t *testing.T) {
	price := 42.5
	company := &records.Company{CIK: "0000000042", Ticker: "ACME", Name: "Acme Corp"}

	t.Run("filings facts and market", func(t *testing.T) {
		f := newFixture()
		f.filings.On("LookupCompany", anyArg, "Acme").Return(company, nil)
		f.filings.On("Filings", anyArg, "0000000042", []string(nil), DefaultFilingLimit).
			Return([]records.Filing{{FormType: "10-K", FilingDate: "2024-02-01"}}, nil)
		f.filings.On("CompanyFacts", anyArg, "0000000042").Return(&records.FinancialFacts{
			Metrics: map[string]records.Fact{"revenue": {Value: 6671000000, PeriodEnd: "2023-12-31", Form: "10-K"}},
		}, nil)
		f.market.On("Snapshot", anyArg, "ACME").Return(&records.MarketSnapshot{Ticker: "ACME", CurrentPrice: &price}, nil)
		f.emptySources()
		indexed := f.captureIndexed("acme", nil)
		f.retriever.On("ForReport", anyArg, anyArg).Return(nil, nil)
		f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

		_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
		require.NoError(t, err)
		assert.Len(t, bySource(*indexed, passage.SourceSECFilings), 1)
		assert.Len(t, bySource(*indexed, passage.SourceSECFinancials), 1)
		assert.Len(t, bySource(*indexed, passage.SourceMarketData), 1)
	})

	t.Run("missing market data is not an error", func(t *testing.T) {
		f := newFixture()
		f.filings.On("LookupCompany", anyArg, "Acme").Return(company, nil)
		f.filings.On("Filings", anyArg, anyArg, anyArg, anyArg).Return([]records.Filing{{FormType: "8-K"}}, nil)
		f.filings.On("CompanyFacts", anyArg, anyArg).Return(&records.FinancialFacts{}, nil)
		f.market.On("Snapshot", anyArg, "ACME").Return(nil, nil)
		f.emptySources()
		indexed := f.captureIndexed("acme", nil)
		f.retriever.On("ForReport", anyArg, anyArg).Return(nil, nil)
		f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

		_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme"})
		require.NoError(t, err)
		assert.Len(t, bySource(*indexed, passage.SourceSECFilings), 1)
		assert.Empty(t, bySource(*indexed, passage.SourceMarketData))
	})
}

func TestBuildReport_ConditionForwarded(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, "Acme", "Oncology").Return([]records.Trial{trial("NCT1")}, nil).Once()
	f.trials.On("SearchByDrug", anyArg, "Acme", "Oncology").Return(nil, nil).Once()
	f.emptySources()
	f.captureIndexed("acme", nil)
	f.retriever.On("ForReport", anyArg, anyArg).Return(nil, nil)
	f.generator.On("GenerateReport", anyArg, anyArg, anyArg).Return("report")

	_, err := f.builder(t, Options{}).BuildReport(context.Background(), Request{Subject: "Acme", Condition: "oncology"})
	require.NoError(t, err)
	f.trials.AssertExpectations(t)
}

func TestBuildReport_InvalidRequest(t *testing.T) {
	f := newFixture()
	b := f.builder(t, Options{})

	for name, req := range map[string]Request{
		"empty subject": {Subject: "  "},
		"bad condition": {Subject: "Acme", Condition: "Astrology"},
		"bad phase":     {Subject: "Acme", Phases: []string{"Phase 9"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := b.BuildReport(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuildReport_Canceled(t *testing.T) {
	f := newFixture()
	f.trials.On("SearchBySponsor", anyArg, anyArg, anyArg).Return(nil, context.Canceled)
	f.trials.On("SearchByDrug", anyArg, anyArg, anyArg).Return(nil, context.Canceled)
	f.emptySources()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.builder(t, Options{}).BuildReport(ctx, Request{Subject: "Acme"})
	assert.ErrorIs(t, err, context.Canceled)
	f.index.AssertNotCalled(t, "EmbedAndStore", anyArg, anyArg, anyArg)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, Options{}, nil)
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	f := newFixture()
	history := []generator.Message{{Role: generator.RoleUser, Content: "hi"}}
	hits := []passage.Passage{{Text: "Clinical Trial: NCT1", Metadata: map[string]string{passage.MetaSourceURL: "u"}}}
	f.retriever.On("ForChat", anyArg, "acme_corp", "Which trials?", 7).Return(hits, nil).Once()
	f.generator.On("GenerateChatResponse", anyArg, "Which trials?", hits, history).Return("NCT1.").Once()

	b := f.builder(t, Options{ChatTopK: 7})
	ans, err := b.Ask(context.Background(), "Acme Corp", " Which trials? ", history)
	require.NoError(t, err)
	assert.Equal(t, "acme_corp", ans.Namespace)
	assert.Equal(t, "NCT1.", ans.Answer)
	assert.Equal(t, hits, ans.Passages)

	t.Run("empty question", func(t *testing.T) {
		_, err := b.Ask(context.Background(), "Acme", "", nil)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		f.retriever.On("ForChat", anyArg, "broken", anyArg, anyArg).Return(nil, errors.New("embedding failed"))
		_, err := b.AskNamespace(context.Background(), "broken", "q", nil)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidRequest)
	})
}

// inFlight tracks the peak number of concurrent calls.
type inFlight struct {
	cur, peak atomic.Int32
}

func (f *inFlight) run(mock.Arguments) {
	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	f.cur.Add(-1)
}

func TestFetch_BoundsPerBrandLookups(t *testing.T) {
	f := newFixture()
	approvals := make([]records.DrugApproval, 12)
	for i := range approvals {
		approvals[i] = records.DrugApproval{BrandName: fmt.Sprintf("BRAND-%02d", i)}
	}
	f.regulatory.On("SearchApprovals", anyArg, "Pfizer", anyArg).Return(approvals, nil)

	var calls inFlight
	f.regulatory.On("SearchLabels", anyArg, anyArg, anyArg).
		Run(calls.run).Return([]records.DrugLabel{{BrandName: "x"}}, nil)
	f.regulatory.On("AdverseEventsSummary", anyArg, anyArg, anyArg).
		Run(calls.run).Return(records.AdverseEventSummary{}, nil)
	f.emptySources()

	c := f.builder(t, Options{}).fetch(context.Background(), "Pfizer", "")

	assert.LessOrEqual(t, calls.peak.Load(), int32(maxLookupsInFlight))
	assert.Len(t, c.labels, 12)
	require.Len(t, c.drugEvents, 12)
	assert.Equal(t, "BRAND-00", c.drugEvents[0].drug)
	assert.Equal(t, "BRAND-11", c.drugEvents[11].drug)
	assert.Empty(t, c.errs)
}

func TestFetch_BoundsPerDeviceLookups(t *testing.T) {
	f := newFixture()
	clearances := make([]records.DeviceClearance, 10)
	for i := range clearances {
		clearances[i] = records.DeviceClearance{DeviceName: fmt.Sprintf("Device %d", i)}
	}
	f.regulatory.On("SearchDeviceClearances", anyArg, "Medtronic", anyArg).Return(clearances, nil)

	var calls inFlight
	f.regulatory.On("DeviceAdverseEventsSummary", anyArg, anyArg, anyArg).
		Run(calls.run).Return(records.DeviceAdverseEventSummary{}, nil)
	f.emptySources()

	c := f.builder(t, Options{MaxDevices: 10}).fetch(context.Background(), "Medtronic", "")

	assert.LessOrEqual(t, calls.peak.Load(), int32(maxLookupsInFlight))
	assert.Len(t, c.deviceEvents, 10)
}
