// Package telemetry sets up OpenTelemetry tracing, metrics and logs for
// pharmadd.
//
// Packages create their tracers from the global provider at init time
// (otel.Tracer("pharmadd.report")). New installs the OTLP-backed providers
// as globals, so those tracers start exporting once telemetry is enabled.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
//
// # Configuration
//
//	observability:
//	  enable_telemetry: true
//	  otlp_endpoint: "localhost:4317"
//	  otlp_protocol: "grpc"          # or http/protobuf
//	  trace_sample_rate: 0.25
//
// Plaintext export is only allowed to loopback endpoints.
//
// # Degraded Mode
//
// An exporter that cannot be created does not fail New. The signal is
// left on the no-op provider and the reason is reported by Health, so the
// caller can log it once the logger exists.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	tt.Install()
//	// ... exercise code ...
//	tt.AssertSpanExists(t, "report.BuildReport")
package telemetry
