package signoff

import (
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/signoff/condition"
	"github.com/viant/signoff/internal/retry"
	"github.com/viant/signoff/service/event"
	"github.com/viant/signoff/service/flow"
	"github.com/viant/signoff/service/request"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithConfig replaces DefaultConfig.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithStore sets the request store, overriding store configuration.
func WithStore(store request.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithFlowRepository sets the flow repository, overriding store configuration.
func WithFlowRepository(repository flow.Repository) Option {
	return func(s *Service) { s.flows = repository }
}

// WithConditions sets the condition evaluator registry.
func WithConditions(registry *condition.Registry) Option {
	return func(s *Service) { s.conditions = registry }
}

// WithSink replaces the configured notification dispatcher.
func WithSink(sink event.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithNotifier registers a notifier for a notification channel.
func WithNotifier(channel string, notifier event.Notifier) Option {
	return func(s *Service) {
		s.dispatcherOptions = append(s.dispatcherOptions, event.WithNotifier(channel, notifier))
	}
}

// WithRetryPolicy overrides the conflict retry policy.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(s *Service) { s.retry = policy }
}

// WithFs sets the file system and options used by LoadFlows.
func WithFs(fs afs.Service, options ...storage.Option) Option {
	return func(s *Service) {
		s.fs = fs
		s.fsOptions = options
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter,
// writing to outputFile when set. The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracingErr = tracing.Init(tracing.Config{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion, OutputFile: outputFile})
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracingErr = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
