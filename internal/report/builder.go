// Package report orchestrates a due-diligence report build: it fans out to
// the public registries, normalizes the records into passages, indexes them
// under the subject's namespace and hands the indexed corpus to the
// generator. It also answers follow-up questions against that namespace.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/chunker"
	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/records"
)

var tracer = otel.Tracer("pharmadd.report")

var (
	// ErrIndexing wraps a failure to embed or store the passages of a build.
	ErrIndexing = errors.New("indexing failed")

	// ErrInvalidRequest indicates a malformed build or chat request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Defaults.
const (
	DefaultMaxDevices  = 10
	DefaultFilingLimit = 10
	DefaultChatTopK    = 10
)

// Request describes one report build.
type Request struct {
	// Subject is a company, drug or device name.
	Subject string `json:"subject"`

	// Condition narrows the trial search. Empty or "All" means none.
	Condition string `json:"condition,omitempty"`

	// Phases filters trials after fetch. Empty, or all four phases, means
	// no filter.
	Phases []string `json:"phases,omitempty"`
}

// Answer is the result of a follow-up question.
type Answer struct {
	Namespace string            `json:"namespace"`
	Answer    string            `json:"answer"`
	Passages  []passage.Passage `json:"passages"`
}

// Deps are the collaborators of a Builder. Source connectors left nil are
// skipped; Index, Retriever and Generator are required.
type Deps struct {
	Trials     TrialSource
	Regulatory RegulatorySource
	Filings    FilingsSource
	Market     MarketSource

	Index     Indexer
	Retriever Retriever
	Generator Generator
}

// Options tunes a Builder. Zero values take the defaults.
type Options struct {
	// MaxDevices caps the devices whose adverse events are fetched. Default: 10
	MaxDevices int

	// RecordLimit caps every regulator lookup. Zero keeps each lookup's default.
	RecordLimit int

	// FilingTypes are the forms listed. Nil keeps the registry default.
	FilingTypes []string

	// FilingLimit caps listed filings. Default: 10
	FilingLimit int

	// ChatTopK is the number of passages retrieved per question. Default: 10
	ChatTopK int
}

// Builder runs report builds and follow-up questions.
type Builder struct {
	trials     TrialSource
	regulatory RegulatorySource
	filings    FilingsSource
	market     MarketSource
	index      Indexer
	retriever  Retriever
	generator  Generator

	opts    Options
	logger  *zap.Logger
	metrics *Metrics
}

// New creates a Builder.
func New(deps Deps, opts Options, logger *zap.Logger) (*Builder, error) {
	if deps.Index == nil || deps.Retriever == nil || deps.Generator == nil {
		return nil, errors.New("index, retriever and generator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxDevices <= 0 {
		opts.MaxDevices = DefaultMaxDevices
	}
	if opts.FilingLimit <= 0 {
		opts.FilingLimit = DefaultFilingLimit
	}
	if opts.ChatTopK <= 0 {
		opts.ChatTopK = DefaultChatTopK
	}
	return &Builder{
		trials:     deps.Trials,
		regulatory: deps.Regulatory,
		filings:    deps.Filings,
		market:     deps.Market,
		index:      deps.Index,
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		opts:       opts,
		logger:     logger,
		metrics:    NewMetrics(),
	}, nil
}

// BuildReport builds the due-diligence report for req.Subject.
//
// Upstream failures are logged and skipped. When no source returns data the
// result is a no-data message and neither the index nor the generator is
// called. A failure to index returns an error wrapping ErrIndexing.
func (b *Builder) BuildReport(ctx context.Context, req Request) (report string, err error) {
	start := time.Now()
	outcome := "generated"
	defer func() {
		if err != nil && outcome == "generated" {
			outcome = "error"
		}
		b.metrics.BuildsTotal.WithLabelValues(outcome).Inc()
		b.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}()

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	condition, err := Condition(req.Condition)
	if err != nil {
		return "", err
	}
	phases, err := NormalizePhases(req.Phases)
	if err != nil {
		return "", err
	}
	namespace := SanitizeCollectionName(subject)

	ctx, span := tracer.Start(ctx, "report.BuildReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject", subject),
		attribute.String("namespace", namespace),
		attribute.String("condition", condition),
		attribute.StringSlice("phases", phases),
	)
	logger := b.logger.With(zap.String("subject", subject), zap.String("namespace", namespace))

	c := b.fetch(ctx, subject, condition)
	if err := ctx.Err(); err != nil {
		outcome = "canceled"
		return "", err
	}
	if len(c.errs) > 0 {
		logger.Warn("report built with partial data", zap.Strings("errors", c.errs))
	}

	trials := FilterByPhase(c.trials, phases)
	if len(trials) != len(c.trials) {
		logger.Debug("phase filter applied",
			zap.Strings("phases", phases),
			zap.Int("before", len(c.trials)),
			zap.Int("after", len(trials)))
	}

	passages := b.chunk(subject, c, trials)
	span.SetAttributes(attribute.Int("passage_count", len(passages)))
	if len(passages) == 0 {
		outcome = "no_data"
		logger.Info("no data found")
		return NoDataMessage(subject, c.errs), nil
	}
	for _, p := range passages {
		b.metrics.PassagesTotal.WithLabelValues(p.Source()).Inc()
	}

	if err := b.index.EmbedAndStore(ctx, passages, namespace); err != nil {
		outcome = "index_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %w", ErrIndexing, err)
	}

	retrieved, err := b.retriever.ForReport(ctx, namespace)
	if err != nil {
		logger.Warn("index read failed, using in-memory passages", zap.Error(err))
	}
	if len(retrieved) == 0 {
		b.metrics.RetrievalFallbacksTotal.Inc()
		retrieved = passages
	}

	report = b.generator.GenerateReport(ctx, subject, retrieved)
	logger.Info("report generated",
		zap.Int("passages", len(retrieved)),
		zap.Int("source_errors", len(c.errs)),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

// chunk normalizes the collected records in a fixed kind order.
func (b *Builder) chunk(subject string, c *collection, trials []records.Trial) []passage.Passage {
	var out []passage.Passage
	for _, t := range trials {
		out = append(out, chunker.Trial(t)...)
	}
	for _, a := range c.approvals {
		out = append(out, chunker.DrugApproval(a)...)
	}
	for _, l := range c.labels {
		out = append(out, chunker.DrugLabel(l)...)
	}
	for _, e := range c.drugEvents {
		out = append(out, chunker.AdverseEvents(e.drug, e.summary)...)
	}
	for _, cl := range c.clearances {
		out = append(out, chunker.DeviceClearance(cl)...)
	}
	for _, e := range c.deviceEvents {
		out = append(out, chunker.DeviceAdverseEvents(e.device, e.summary)...)
	}
	out = append(out, chunker.DeviceRecalls(subject, c.recalls)...)
	if c.company != nil {
		out = append(out, chunker.Filings(*c.company, c.filings)...)
		out = append(out, chunker.Financials(*c.company, c.facts, c.market)...)
	}
	return out
}

// NoDataMessage is the build result when no source returned anything.
func NoDataMessage(subject string, errs []string) string {
	msg := fmt.Sprintf("No data found for '%s' in ClinicalTrials.gov, FDA, or SEC EDGAR databases.", subject)
	if len(errs) == 0 {
		return msg
	}
	return msg + "\n\nErrors encountered:\n- " + strings.Join(errs, "\n- ")
}

// Ask answers a follow-up question about subject from its namespace.
func (b *Builder) Ask(ctx context.Context, subject, question string, history []generator.Message) (*Answer, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	return b.AskNamespace(ctx, SanitizeCollectionName(subject), question, history)
}

// AskNamespace answers a follow-up question from namespace. An unknown or
// empty namespace yields an answer grounded on no passages.
func (b *Builder) AskNamespace(ctx context.Context, namespace, question string, history []generator.Message) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidRequest)
	}

	ctx, span := tracer.Start(ctx, "report.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	passages, err := b.retriever.ForChat(ctx, namespace, question, b.opts.ChatTopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("retrieving context for %s: %w", namespace, err)
	}

	answer := b.generator.GenerateChatResponse(ctx, question, passages, history)
	b.metrics.QuestionsTotal.Inc()
	return &Answer{Namespace: namespace, Answer: answer, Passages: passages}, nil
}
