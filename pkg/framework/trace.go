package framework

import (
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingExporter selects which OTel exporter NewTracerProvider wires up.
type TracingExporter string

const (
	// TracingStdout writes spans as pretty-printed JSON to stdout — the
	// teacher's local-dev default for tracing the EventBus's delivery
	// path, reused here for tracing Theron's dispatch path.
	TracingStdout TracingExporter = "stdout"
	// TracingZipkin ships spans to a Zipkin collector.
	TracingZipkin TracingExporter = "zipkin"
)

// TracingConfig selects and configures the OTel exporter backing a
// Framework's dispatch tracing.
type TracingConfig struct {
	Exporter TracingExporter
	// ZipkinURL is the collector's HTTP endpoint, e.g.
	// "http://localhost:9411/api/v2/spans". Required when Exporter is
	// TracingZipkin.
	ZipkinURL string
	// ServiceName is stored in the config only: NewTracerProvider does not
	// read it, so spans carry the SDK's default resource.
	ServiceName string
}

// NewTracerProvider constructs an sdktrace.TracerProvider per cfg. The
// caller owns its lifecycle (Shutdown flushes pending spans) — Framework
// never constructs one implicitly, since most embedders of a
// concurrency library already run their own TracerProvider and should
// pass span context through WithTracerProvider instead.
func NewTracerProvider(cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case TracingZipkin:
		exporter, err = zipkin.New(cfg.ZipkinURL)
	default:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	), nil
}

// WithTracerProvider installs tp as the source of this Framework's
// dispatch spans: every DispatchOne call (pop → handler invocation →
// requeue decision) becomes one span named after the dispatched
// message's type tag. Pass nil to disable tracing (the default).
func (f *Framework) WithTracerProvider(tp *sdktrace.TracerProvider) *Framework {
	if tp == nil {
		f.sched.SetTracer(nil)
		return f
	}
	name := f.tracerName()
	f.sched.SetTracer(tp.Tracer(name))
	return f
}

func (f *Framework) tracerName() string {
	return "theron/framework"
}
