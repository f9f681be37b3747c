package http

import (
	"github.com/fyrsmithlabs/pharmadd/internal/generator"
	"github.com/fyrsmithlabs/pharmadd/internal/passage"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version,omitempty"`
	Namespaces []NamespaceCount `json:"namespaces,omitempty"`
}

// NamespaceCount is a namespace and the number of passages it holds.
// Passages is -1 when the count could not be read.
type NamespaceCount struct {
	Name     string `json:"name"`
	Passages int    `json:"passages"`
}

// ReportRequest is the request body for POST /api/v1/reports.
type ReportRequest struct {
	Subject   string   `json:"subject"`
	Condition string   `json:"condition,omitempty"`
	Phases    []string `json:"phases,omitempty"`
}

// ReportResponse is the response body for POST /api/v1/reports.
type ReportResponse struct {
	Subject   string `json:"subject"`
	Namespace string `json:"namespace"`
	Report    string `json:"report"`
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Subject   string              `json:"subject,omitempty"`
	Namespace string              `json:"namespace,omitempty"`
	Question  string              `json:"question"`
	History   []generator.Message `json:"history,omitempty"`
}

// ChatResponse is the response body for POST /api/v1/chat.
type ChatResponse struct {
	Namespace string            `json:"namespace"`
	Answer    string            `json:"answer"`
	Passages  []passage.Passage `json:"passages"`
}

// NamespaceResponse is the response body for GET /api/v1/namespaces/:name.
type NamespaceResponse struct {
	Subject   string `json:"subject"`
	Namespace string `json:"namespace"`
}

// NamespacesResponse is the response body for GET /api/v1/namespaces.
type NamespacesResponse struct {
	Namespaces []NamespaceCount `json:"namespaces"`
}

// PassagesResponse is the response body for
// GET /api/v1/namespaces/:name/passages.
type PassagesResponse struct {
	Namespace string            `json:"namespace"`
	Count     int               `json:"count"`
	Passages  []passage.Passage `json:"passages"`
}

// AreasResponse is the response body for GET /api/v1/areas.
type AreasResponse struct {
	TherapeuticAreas []string `json:"therapeutic_areas"`
	Phases           []string `json:"phases"`
}
