package http_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	httpserver "github.com/fyrsmithlabs/pharmadd/internal/http"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
	"github.com/fyrsmithlabs/pharmadd/internal/report"
)

type staticReports struct{}

func (staticReports) BuildReport(ctx context.Context, req report.Request) (string, error) {
	return "## Due Diligence Report: " + req.Subject, nil
}

func (staticReports) Ask(ctx context.Context, subject, question string, history []generator.Message) (*report.Answer, error) {
	return &report.Answer{Namespace: report.SanitizeCollectionName(subject), Answer: "ok"}, nil
}

func (staticReports) AskNamespace(ctx context.Context, namespace, question string, history []generator.Message) (*report.Answer, error) {
	return &report.Answer{Namespace: namespace, Answer: "ok"}, nil
}

type noPassages struct{}

func (noPassages) ForReport(ctx context.Context, namespace string) ([]passage.Passage, error) {
	return nil, nil
}

// ExampleServer demonstrates building a report through the HTTP API.
func ExampleServer() {
	server, err := httpserver.NewServer(httpserver.Deps{
		Reports:  staticReports{},
		Passages: noPassages{},
	}, zap.NewNop(), nil)
	if err != nil {
		panic(err)
	}

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/reports", "application/json",
		strings.NewReader(`{"subject":"Pfizer"}`))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Println(resp.StatusCode, strings.TrimSpace(string(body)))
	// Output: 200 {"subject":"Pfizer","namespace":"pfizer","report":"## Due Diligence Report: Pfizer"}
}
