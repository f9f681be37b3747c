// Package logging is the structured logger used across pharmadd.
//
// A Logger wraps zap and takes a context on every call. Correlation fields
// found in the context are prepended to each entry:
//
//	trace_id, span_id, trace_sampled   from the active OpenTelemetry span
//	subject, namespace                 from WithSubject and WithNamespace
//	request.id                         from WithRequestID
//
// Packages that only need a *zap.Logger get one from Underlying.
//
// # Outputs
//
// Entries go to stdout (or stderr when stdout carries MCP stdio or a
// report) and, when a log.LoggerProvider is supplied, to the OTEL bridge.
// FromObservability derives the config from the OBSERVABILITY_* settings.
//
// # Redaction
//
// Field keys containing a configured name (password, token, api_key, dsn
// and so on) are replaced with [REDACTED]. String values, error messages
// and the entry message have pattern matches replaced, which covers
// openFDA api_key query parameters in URLs, provider keys, bearer tokens
// and Postgres DSN passwords. Both outputs apply the same rules.
//
//	logger.Info(ctx, "client ready", logging.Secret("openfda_api_key", cfg.Sources.OpenFDAAPIKey))
//
// # Sampling
//
// Each level listed in Sampling.Levels gets its own sampler; unlisted
// levels are not sampled. Error and above are never sampled.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := connector.New(cfg, tl.Underlying())
//	...
//	tl.AssertLogged(t, zapcore.WarnLevel, "rate limited")
//	tl.AssertField(t, "rate limited", "status", 429)
//	tl.AssertNoSecrets(t, apiKey)
package logging
