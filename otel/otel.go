// Package nirumotel provides OpenTelemetry instrumentation for nirum
// servers. It implements [nirum.DispatchHook] to add distributed
// tracing and metrics to RPC dispatch.
//
// Usage:
//
//	srv := nirum.NewServer(svc, nirum.ServerOptions{})
//	// ... register handlers ...
//	nirumotel.InstrumentServer(srv, nirumotel.DefaultConfig())
package nirumotel

import (
	"context"
	"errors"
	"time"

	"github.com/danderson/nirum"
	"github.com/danderson/nirum/wire"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/danderson/nirum"

// Config configures OpenTelemetry instrumentation for a nirum server.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator extracts trace context from request headers.
	// Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing enables span creation.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording.
	EnableMetrics bool
	// RecordErrors calls RecordError on the span for failed calls.
	RecordErrors bool
	// ServiceName is the rpc.service attribute value. Defaults to the
	// server's service name.
	ServiceName string
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with tracing, metrics and error
// recording enabled. Providers and the propagator are resolved from
// the global OpenTelemetry SDK at instrumentation time.
func DefaultConfig() Config {
	return Config{
		EnableTracing: true,
		EnableMetrics: true,
		RecordErrors:  true,
	}
}

// InstrumentServer installs OpenTelemetry instrumentation on srv with
// [nirum.Server.SetDispatchHook], replacing any existing hook.
func InstrumentServer(srv *nirum.Server, cfg Config) {
	srv.SetDispatchHook(NewHook(srv.Service(), cfg))
}

// NewHook returns a DispatchHook that instruments calls to svc.
func NewHook(svc *nirum.Service, cfg Config) nirum.DispatchHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = svc.Name
	}

	ret := &hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		ret.requests, _ = meter.Int64Counter("rpc.server.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of RPC requests"),
		)
		ret.duration, _ = meter.Float64Histogram("rpc.server.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of RPC requests"),
		)
	}
	return ret
}

type hook struct {
	cfg      Config
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// spanToken is the HookToken returned by OnDispatchStart.
type spanToken struct {
	span  trace.Span
	start time.Time
}

// OnDispatchStart extracts the parent trace context from the request
// headers and starts a server span.
func (h *hook) OnDispatchStart(ctx context.Context, info nirum.DispatchInfo) (context.Context, nirum.HookToken) {
	if info.Header != nil {
		ctx = h.cfg.Propagator.Extract(ctx, propagation.MapCarrier(info.Header))
	}
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{start: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "nirum"),
		attribute.String("rpc.service", h.cfg.ServiceName),
		attribute.String("rpc.method", info.Method),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)
	if info.RemoteAddr != "" {
		attrs = append(attrs, attribute.String("client.address", info.RemoteAddr))
	}
	if info.UserAgent != "" {
		attrs = append(attrs, attribute.String("user_agent.original", info.UserAgent))
	}

	ctx, span := h.tracer.Start(ctx, "nirum/"+info.Method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, start: time.Now()}
}

// OnDispatchEnd records metrics and span attributes, and ends the
// span.
func (h *hook) OnDispatchEnd(ctx context.Context, token nirum.HookToken, info nirum.DispatchInfo, stats nirum.CallStats, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		attrs := metric.WithAttributes(
			attribute.String("rpc.system", "nirum"),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Method),
			attribute.Int("http.response.status_code", stats.Status),
			attribute.String("status", status),
		)
		if h.requests != nil {
			h.requests.Add(ctx, 1, attrs)
		}
		if h.duration != nil {
			h.duration.Record(ctx, time.Since(st.start).Seconds(), attrs)
		}
	}

	if st.span == nil {
		return
	}
	defer st.span.End()
	if !st.span.IsRecording() {
		return
	}
	st.span.SetAttributes(
		attribute.Int("http.response.status_code", stats.Status),
		attribute.Int64("rpc.nirum.request_bytes", stats.RequestBytes),
		attribute.Int64("rpc.nirum.response_bytes", stats.ResponseBytes),
	)
	if err == nil {
		st.span.SetStatus(codes.Ok, "")
		return
	}
	st.span.SetStatus(codes.Error, err.Error())
	if h.cfg.RecordErrors {
		st.span.RecordError(err)
	}
	st.span.SetAttributes(attribute.String("rpc.nirum.error_type", errorType(stats.Status, err)))
}

// errorType returns the declared error variant of err, or the error
// tag of the response status.
func errorType(status int, err error) string {
	var v nirum.Variant
	if errors.As(err, &v) {
		return v.VariantType().String()
	}
	return wire.StatusTag(status)
}
