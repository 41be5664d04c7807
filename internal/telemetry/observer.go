package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routekit/pkg/loadercache"
	"github.com/vango-dev/routekit/pkg/router"
)

// Default tracer name for routekit spans.
const defaultTracerName = "routekit"

// Attribute keys set on router spans.
const (
	AttrTransitionID = attribute.Key("routekit.transition_id")
	AttrHref         = attribute.Key("routekit.href")
	AttrOutcome      = attribute.Key("routekit.outcome")
	AttrRouteID      = attribute.Key("routekit.route_id")
	AttrPhase        = attribute.Key("routekit.phase")
	AttrSignal       = attribute.Key("routekit.signal")
)

// Config configures an Observer.
type Config struct {
	// TracerName is the name of the tracer (default: "routekit").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// Metrics receives counters and timings. If nil, only spans are recorded.
	Metrics *Metrics
}

// Option configures an Observer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// Observer implements router.Observer with OpenTelemetry spans and
// Prometheus metrics.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	obs := telemetry.New(telemetry.WithMetrics(telemetry.NewMetrics(telemetry.WithRegistry(reg))))
//	r, err := router.New(tree, router.WithObserver(obs))
type Observer struct {
	tracer  trace.Tracer
	metrics *Metrics
	now     func() time.Time
}

var _ router.Observer = (*Observer)(nil)

// New creates an Observer.
func New(opts ...Option) *Observer {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{
		tracer:  tp.Tracer(config.TracerName),
		metrics: config.Metrics,
		now:     time.Now,
	}
}

// TransitionStarted opens a span covering one transition.
func (o *Observer) TransitionStarted(ctx context.Context, id, href string) (context.Context, func(string, error)) {
	ctx, span := o.tracer.Start(ctx, "routekit.transition",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrTransitionID.String(id),
			AttrHref.String(href),
		),
	)
	start := o.now()

	return ctx, func(outcome string, err error) {
		span.SetAttributes(AttrOutcome.String(outcome))
		if outcome == router.OutcomeFailed && err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		if o.metrics != nil {
			o.metrics.navigations.WithLabelValues(outcome).Inc()
			o.metrics.navigationDuration.WithLabelValues(outcome).Observe(o.now().Sub(start).Seconds())
		}
	}
}

// PhaseStarted opens a child span for one beforeLoad or loader call.
func (o *Observer) PhaseStarted(ctx context.Context, phase, routeID string) (context.Context, func(error)) {
	ctx, span := o.tracer.Start(ctx, "routekit."+phase,
		trace.WithAttributes(
			AttrPhase.String(phase),
			AttrRouteID.String(routeID),
		),
	)
	start := o.now()

	return ctx, func(err error) {
		sig := signal(err)
		switch {
		case sig != "":
			span.SetAttributes(AttrSignal.String(sig))
			span.SetStatus(codes.Ok, "")
			err = nil
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		if o.metrics != nil {
			o.metrics.phaseDuration.WithLabelValues(phase, routeID).Observe(o.now().Sub(start).Seconds())
			if err != nil {
				o.metrics.phaseErrors.WithLabelValues(phase, routeID).Inc()
			}
		}
	}
}

// signal names the control-flow signal in err, or "" for real failures.
func signal(err error) string {
	var (
		rd *router.Redirect
		nf *router.NotFound
	)
	switch {
	case errors.As(err, &rd):
		return "redirect"
	case errors.As(err, &nf):
		return "notFound"
	}
	return ""
}

// CacheResult counts a loader cache lookup.
func (o *Observer) CacheResult(routeID, outcome string) {
	if o.metrics == nil {
		return
	}
	o.metrics.cacheResults.WithLabelValues(routeID, outcome).Inc()
}

// Redirected counts a followed redirect.
func (o *Observer) Redirected(from, to string) {
	if o.metrics == nil {
		return
	}
	o.metrics.redirects.Inc()
}

// CacheHooks returns hooks that count evictions. Hits and misses are
// reported per route through CacheResult.
func (o *Observer) CacheHooks() loadercache.Hooks {
	return loadercache.Hooks{
		OnEvict: func(string) {
			if o.metrics != nil {
				o.metrics.cacheEvictions.Inc()
			}
		},
	}
}
