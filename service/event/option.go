package event

import (
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/messaging"
	"go.uber.org/zap"
)

// Option customises a Dispatcher.
type Option func(d *Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithNotifier registers notifier under channel.
func WithNotifier(channel string, notifier Notifier) Option {
	return func(d *Dispatcher) { d.notifiers[channel] = notifier }
}

// WithQueue replaces the in-memory queue used for queued delivery.
func WithQueue(queue messaging.Queue[Event[model.Event]]) Option {
	return func(d *Dispatcher) { d.queue = queue }
}
