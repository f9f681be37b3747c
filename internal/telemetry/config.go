package telemetry

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/pharmadd/internal/config"
)

// OTLP export protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string

	// SampleRate is the fraction of root traces kept, 0 to 1.
	SampleRate float64

	Metrics        bool
	ExportInterval time.Duration
	Logs           bool

	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns the defaults: disabled, exporting to a local
// collector over plaintext gRPC when turned on.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		Endpoint:        "localhost:4317",
		Protocol:        ProtocolGRPC,
		Insecure:        true,
		ServiceName:     "pharmadd",
		ServiceVersion:  "0.1.0",
		SampleRate:      1.0,
		Metrics:         true,
		ExportInterval:  15 * time.Second,
		Logs:            true,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromObservability builds a telemetry config from the application's
// observability settings. Empty values keep the defaults. Export is
// plaintext only when the endpoint is a loopback address.
func FromObservability(obs config.ObservabilityConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = obs.EnableTelemetry
	if obs.ServiceName != "" {
		cfg.ServiceName = obs.ServiceName
	}
	if obs.OTLPEndpoint != "" {
		cfg.Endpoint = obs.OTLPEndpoint
	}
	if obs.OTLPProtocol != "" {
		cfg.Protocol = obs.OTLPProtocol
	}
	if obs.TraceSampleRate > 0 {
		cfg.SampleRate = obs.TraceSampleRate
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.Insecure = isLoopback(cfg.Endpoint)
	return cfg
}

// Validate checks configuration for errors. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required when telemetry is enabled")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service version is required when telemetry is enabled")
	}
	if c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP {
		return fmt.Errorf("unsupported protocol %q (supported: %s, %s)", c.Protocol, ProtocolGRPC, ProtocolHTTP)
	}
	if c.Insecure && !isLoopback(c.Endpoint) {
		return fmt.Errorf("plaintext export to %s is not allowed; only loopback endpoints may be insecure", c.Endpoint)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %g", c.SampleRate)
	}
	if c.Metrics && c.ExportInterval <= 0 {
		return fmt.Errorf("export interval must be positive when metrics are enabled")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// isLoopback reports whether endpoint (host, host:port or a URL) names
// the local machine.
func isLoopback(endpoint string) bool {
	host := stripScheme(endpoint)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// stripScheme removes http:// or https:// from an endpoint. The OTLP
// exporters take host:port.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
