// Package generator synthesizes due-diligence reports and follow-up answers
// from retrieved passages with a langchaingo language model.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/passage"
)

// Defaults.
const (
	DefaultReportMaxTokens = 4096
	DefaultChatMaxTokens   = 2048
	MaxHistoryMessages     = 20
)

// Conversation roles accepted in chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var tracer = otel.Tracer("pharmadd.generator")

// Message is one turn of a caller-owned conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures a Generator.
type Options struct {
	// Model is the model name, recorded in telemetry.
	Model           string
	ReportMaxTokens int
	ChatMaxTokens   int
}

// Generator wraps a language model behind the report and chat contracts.
// Neither operation returns an error: failures become fallback texts.
type Generator struct {
	llm             llms.Model
	model           string
	reportMaxTokens int
	chatMaxTokens   int
	logger          *zap.Logger
	metrics         *Metrics
}

// New creates a Generator over llm.
func New(llm llms.Model, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReportMaxTokens <= 0 {
		opts.ReportMaxTokens = DefaultReportMaxTokens
	}
	if opts.ChatMaxTokens <= 0 {
		opts.ChatMaxTokens = DefaultChatMaxTokens
	}
	return &Generator{
		llm:             llm,
		model:           opts.Model,
		reportMaxTokens: opts.ReportMaxTokens,
		chatMaxTokens:   opts.ChatMaxTokens,
		logger:          logger,
		metrics:         NewMetrics(logger),
	}
}

// GenerateReport writes the due-diligence report for subject. An empty
// passage list still produces a call with a prompt stating no data was found.
func (g *Generator) GenerateReport(ctx context.Context, subject string, passages []passage.Passage) string {
	ctx, span := tracer.Start(ctx, "generator.GenerateReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject", subject),
		attribute.Int("passage_count", len(passages)),
	)

	data := joinPassages(passages, noReportData)
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, reportSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Generate a due diligence report for: %s\n\nData:\n%s", subject, data)),
	}

	text, err := g.complete(ctx, "report", messages, g.reportMaxTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("report generation failed", zap.String("subject", subject), zap.Error(err))
		g.metrics.RecordFallback(ctx, "report")
		return ReportFallback
	}

	g.checkCitations(ctx, "report", text, passages)
	return text
}

// GenerateChatResponse answers question from passages and the most recent
// MaxHistoryMessages turns of history.
func (g *Generator) GenerateChatResponse(ctx context.Context, question string, passages []passage.Passage, history []Message) string {
	ctx, span := tracer.Start(ctx, "generator.GenerateChatResponse")
	defer span.End()
	span.SetAttributes(
		attribute.Int("passage_count", len(passages)),
		attribute.Int("history_len", len(history)),
	)

	window := RecentHistory(history)
	messages := make([]llms.MessageContent, 0, len(window)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, chatSystemPrompt))
	for _, m := range window {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman,
		fmt.Sprintf("Context from database:\n%s\n\nQuestion: %s", joinPassages(passages, noChatData), question)))

	text, err := g.complete(ctx, "chat", messages, g.chatMaxTokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("chat generation failed", zap.Error(err))
		g.metrics.RecordFallback(ctx, "chat")
		return ChatFallback
	}

	g.checkCitations(ctx, "chat", text, passages)
	return text
}

// complete runs one model call and returns the first non-blank choice.
func (g *Generator) complete(ctx context.Context, operation string, messages []llms.MessageContent, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := g.llm.GenerateContent(ctx, messages, llms.WithMaxTokens(maxTokens))
	if err == nil {
		err = ErrEmptyResponse
		if resp != nil {
			for _, c := range resp.Choices {
				if c != nil && strings.TrimSpace(c.Content) != "" {
					g.metrics.RecordCompletion(ctx, g.model, operation, time.Since(start), nil)
					return c.Content, nil
				}
			}
		}
	}
	g.metrics.RecordCompletion(ctx, g.model, operation, time.Since(start), err)
	return "", err
}

func (g *Generator) checkCitations(ctx context.Context, operation, text string, passages []passage.Passage) {
	unknown := CitationCheck(text, passages)
	if len(unknown) == 0 {
		return
	}
	g.metrics.RecordUnsupportedCitations(ctx, operation, len(unknown))
	g.logger.Warn("output cites URLs absent from the passages",
		zap.String("operation", operation),
		zap.Strings("urls", unknown))
}

// RecentHistory keeps user and assistant turns, then the last
// MaxHistoryMessages of them. A leading assistant turn is dropped so the
// window opens on a user message.
func RecentHistory(history []Message) []Message {
	kept := make([]Message, 0, len(history))
	for _, m := range history {
		if (m.Role == RoleUser || m.Role == RoleAssistant) && m.Content != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) > MaxHistoryMessages {
		kept = kept[len(kept)-MaxHistoryMessages:]
	}
	if len(kept) > 0 && kept[0].Role == RoleAssistant {
		kept = kept[1:]
	}
	return kept
}

func joinPassages(ps []passage.Passage, empty string) string {
	if len(ps) == 0 {
		return empty
	}
	return strings.Join(passage.Texts(ps), passageJoiner)
}
