package report

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

// MockTrials is a mock implementation of TrialSource
type MockTrials struct {
	mock.Mock
}

func (m *MockTrials) SearchBySponsor(ctx context.Context, name, condition string) ([]records.Trial, error) {
	args := m.Called(ctx, name, condition)
	trials, _ := args.Get(0).([]records.Trial)
	return trials, args.Error(1)
}

func (m *MockTrials) SearchByDrug(ctx context.Context, name, condition string) ([]records.Trial, error) {
	args := m.Called(ctx, name, condition)
	trials, _ := args.Get(0).([]records.Trial)
	return trials, args.Error(1)
}

// MockRegulatory is a mock implementation of RegulatorySource
type MockRegulatory struct {
	mock.Mock
}

func (m *MockRegulatory) SearchApprovals(ctx context.Context, term string, limit int) ([]records.DrugApproval, error) {
	args := m.Called(ctx, term, limit)
	out, _ := args.Get(0).([]records.DrugApproval)
	return out, args.Error(1)
}

func (m *MockRegulatory) SearchLabels(ctx context.Context, drug string, limit int) ([]records.DrugLabel, error) {
	args := m.Called(ctx, drug, limit)
	out, _ := args.Get(0).([]records.DrugLabel)
	return out, args.Error(1)
}

func (m *MockRegulatory) AdverseEventsSummary(ctx context.Context, drug string, limit int) (records.AdverseEventSummary, error) {
	args := m.Called(ctx, drug, limit)
	out, _ := args.Get(0).(records.AdverseEventSummary)
	return out, args.Error(1)
}

func (m *MockRegulatory) SearchDeviceClearances(ctx context.Context, term string, limit int) ([]records.DeviceClearance, error) {
	args := m.Called(ctx, term, limit)
	out, _ := args.Get(0).([]records.DeviceClearance)
	return out, args.Error(1)
}

func (m *MockRegulatory) DeviceAdverseEventsSummary(ctx context.Context, device string, limit int) (records.DeviceAdverseEventSummary, error) {
	args := m.Called(ctx, device, limit)
	out, _ := args.Get(0).(records.DeviceAdverseEventSummary)
	return out, args.Error(1)
}

func (m *MockRegulatory) SearchDeviceRecalls(ctx context.Context, company string, limit int) ([]records.DeviceRecall, error) {
	args := m.Called(ctx, company, limit)
	out, _ := args.Get(0).([]records.DeviceRecall)
	return out, args.Error(1)
}

// MockFilings is a mock implementation of FilingsSource
type MockFilings struct {
	mock.Mock
}

func (m *MockFilings) LookupCompany(ctx context.Context, query string) (*records.Company, error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).(*records.Company)
	return out, args.Error(1)
}

func (m *MockFilings) Filings(ctx context.Context, cik string, types []string, limit int) ([]records.Filing, error) {
	args := m.Called(ctx, cik, types, limit)
	out, _ := args.Get(0).([]records.Filing)
	return out, args.Error(1)
}

func (m *MockFilings) CompanyFacts(ctx context.Context, cik string) (*records.FinancialFacts, error) {
	args := m.Called(ctx, cik)
	out, _ := args.Get(0).(*records.FinancialFacts)
	return out, args.Error(1)
}

// MockMarket is a mock implementation of MarketSource
type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) Snapshot(ctx context.Context, ticker string) (*records.MarketSnapshot, error) {
	args := m.Called(ctx, ticker)
	out, _ := args.Get(0).(*records.MarketSnapshot)
	return out, args.Error(1)
}

// MockIndex is a mock implementation of Indexer
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) EmbedAndStore(ctx context.Context, passages []passage.Passage, namespace string) error {
	args := m.Called(ctx, passages, namespace)
	return args.Error(0)
}

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) ForReport(ctx context.Context, namespace string) ([]passage.Passage, error) {
	args := m.Called(ctx, namespace)
	out, _ := args.Get(0).([]passage.Passage)
	return out, args.Error(1)
}

func (m *MockRetriever) ForChat(ctx context.Context, namespace, query string, k int) ([]passage.Passage, error) {
	args := m.Called(ctx, namespace, query, k)
	out, _ := args.Get(0).([]passage.Passage)
	return out, args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateReport(ctx context.Context, subject string, passages []passage.Passage) string {
	args := m.Called(ctx, subject, passages)
	return args.String(0)
}

func (m *MockGenerator) GenerateChatResponse(ctx context.Context, question string, passages []passage.Passage, history []generator.Message) string {
	args := m.Called(ctx, question, passages, history)
	return args.String(0)
}
