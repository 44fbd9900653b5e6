package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/viant/signoff"

// Config enables the stdout exporter; OutputFile redirects it to a file.
type Config struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

var (
	once    sync.Once
	initErr error
)

// Init installs a global tracer provider exporting to stdout or
// config.OutputFile. Only the first call takes effect; disabled configs are
// ignored.
func Init(config Config) error {
	if !config.Enabled {
		return nil
	}
	var w io.Writer = os.Stdout
	if config.OutputFile != "" {
		f, err := os.Create(config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		w = f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return InitWithExporter(config.ServiceName, config.ServiceVersion, exporter)
}

// InitWithExporter installs a global tracer provider over any span
// exporter, for example OTLP or an in-memory test exporter.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	once.Do(func() {
		res, err := resource.New(context.Background(), resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		))
		if err != nil {
			initErr = err
			return
		}
		otel.SetTracerProvider(sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		))
	})
	return initErr
}

// Span is an operation span; a nil Span is valid and records nothing.
type Span struct {
	span trace.Span
}

// Start opens an internal span named name with string attributes; blank
// values are skipped.
func Start(ctx context.Context, name string, attrs map[string]string) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentation).Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	ret := &Span{span: span}
	ret.Set(attrs)
	return ctx, ret
}

// Set adds string attributes.
func (s *Span) Set(attrs map[string]string) *Span {
	if s == nil {
		return s
	}
	for k, v := range attrs {
		if v != "" {
			s.span.SetAttributes(attribute.String(k, v))
		}
	}
	return s
}

// SetInt adds an integer attribute.
func (s *Span) SetInt(key string, value int) *Span {
	if s == nil {
		return s
	}
	s.span.SetAttributes(attribute.Int(key, value))
	return s
}

// End records err, if any, and ends the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// FromContext returns the recording span carried by ctx.
func FromContext(ctx context.Context) (*Span, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil, false
	}
	return &Span{span: span}, true
}
