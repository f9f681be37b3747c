package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the OpenTelemetry providers of one process.
type Telemetry struct {
	config *Config

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	mu       sync.Mutex
	problems []string
	closed   atomic.Bool
}

// HealthStatus describes which signals are exporting.
type HealthStatus struct {
	Enabled  bool
	Degraded bool
	Closed   bool
	// Problems lists why a signal fell back to no-op.
	Problems []string
}

// New validates cfg and, when enabled, installs OTLP providers for traces,
// metrics and logs as the otel globals. Exporter failures degrade the
// instance instead of failing; see Health.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		t.degrade("traces", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.Metrics {
		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			t.degrade("metrics", err)
		} else {
			t.meterProvider = mp
			otel.SetMeterProvider(mp)
		}
	}

	if cfg.Logs {
		lp, err := newLoggerProvider(ctx, cfg, res)
		if err != nil {
			t.degrade("logs", err)
		} else {
			t.loggerProvider = lp
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer from the owned provider, or from the global one
// when tracing is off.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter from the owned provider, or from the global one
// when metrics are off.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// LoggerProvider returns the provider for the zap OTEL bridge, or nil when
// log export is off.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.loggerProvider == nil {
		return nil
	}
	return t.loggerProvider
}

// Health reports the export state.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true, Problems: []string{"telemetry not initialized"}}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Enabled:  t.config != nil && t.config.Enabled,
		Degraded: len(t.problems) > 0,
		Closed:   t.closed.Load(),
		Problems: append([]string(nil), t.problems...),
	}
}

// flusher is the lifecycle every SDK provider shares.
type flusher interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

type signal struct {
	name string
	p    flusher
}

// signals lists the running providers, logs last so records emitted while
// the others stop are still exported.
func (t *Telemetry) signals() []signal {
	var out []signal
	if t.tracerProvider != nil {
		out = append(out, signal{"trace", t.tracerProvider})
	}
	if t.meterProvider != nil {
		out = append(out, signal{"metric", t.meterProvider})
	}
	if t.loggerProvider != nil {
		out = append(out, signal{"log", t.loggerProvider})
	}
	return out
}

// ForceFlush exports everything buffered.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for _, s := range t.signals() {
		if err := s.p.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s flush: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every provider. Without a deadline on ctx the
// configured shutdown timeout applies. Calling it twice is a no-op.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil && t.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	for _, s := range t.signals() {
		if err := s.p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s provider shutdown: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telemetry) degrade(signal string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.problems = append(t.problems, fmt.Sprintf("%s: %v", signal, err))
}
