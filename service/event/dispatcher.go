package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/messaging"
	"github.com/viant/signoff/service/messaging/memory"
	"go.uber.org/zap"
)

// Config controls notification delivery.
type Config struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Channels []string      `json:"channels" yaml:"channels"`
	UseQueue bool          `json:"useQueue" yaml:"useQueue"`
	Queue    memory.Config `json:"queue" yaml:"queue"`
}

// DefaultConfig returns enabled synchronous delivery to the log channel.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Channels: []string{LogChannel},
		Queue:    memory.DefaultConfig(),
	}
}

// Sink receives committed events.
type Sink interface {
	Publish(ctx context.Context, events ...*model.Event) error
}

// Dispatcher fans events out to the configured channels. Failed
// synchronous deliveries are logged and never propagated.
type Dispatcher struct {
	config    Config
	logger    *zap.Logger
	notifiers map[string]Notifier
	queue     messaging.Queue[Event[model.Event]]
	publisher *Publisher[model.Event]
	listener  *Listener[model.Event]
}

// NewDispatcher creates a dispatcher; every configured channel needs a
// notifier, the log channel is registered by default.
func NewDispatcher(config Config, options ...Option) (*Dispatcher, error) {
	ret := &Dispatcher{config: config, notifiers: map[string]Notifier{}}
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	if _, ok := ret.notifiers[LogChannel]; !ok {
		ret.notifiers[LogChannel] = NewLogNotifier(ret.logger)
	}
	for _, channel := range config.Channels {
		if _, ok := ret.notifiers[channel]; !ok {
			return nil, fmt.Errorf("unsupported notification channel: %q", channel)
		}
	}
	if config.UseQueue {
		if ret.queue == nil {
			ret.queue = memory.NewQueue[Event[model.Event]](config.Queue)
		}
		ret.publisher = NewPublisher[model.Event](ret.queue)
		ret.listener = NewListener[model.Event](ret.publisher, ret.logger, ret.handle)
	}
	return ret, nil
}

// Start begins queued delivery; it is a no-op for synchronous delivery.
func (d *Dispatcher) Start() {
	if d.listener != nil {
		d.listener.Start()
	}
}

// Publish delivers or enqueues every event for every channel.
func (d *Dispatcher) Publish(ctx context.Context, events ...*model.Event) error {
	if !d.config.Enabled {
		return nil
	}
	var errs []error
	for _, event := range events {
		if event == nil {
			continue
		}
		for _, channel := range d.config.Channels {
			if d.publisher == nil {
				d.deliver(ctx, channel, event)
				continue
			}
			envelope := NewEvent(&Context{RequestID: requestID(event), EventType: string(event.Kind), Channel: channel}, *event)
			if err := d.publisher.Publish(ctx, envelope); err != nil {
				errs = append(errs, fmt.Errorf("failed to enqueue %v for %v: %w", event.Kind, channel, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, channel string, event *model.Event) {
	if err := d.notifiers[channel].Notify(ctx, event); err != nil {
		d.logger.Warn("notification failed",
			zap.String("channel", channel),
			zap.String("kind", string(event.Kind)),
			zap.String("request", requestID(event)),
			zap.Error(err))
	}
}

func (d *Dispatcher) handle(ctx context.Context, envelope *Event[model.Event], attempt int) error {
	notifier, ok := d.notifiers[envelope.Context.Channel]
	if !ok {
		return fmt.Errorf("unsupported notification channel: %q", envelope.Context.Channel)
	}
	if err := notifier.Notify(ctx, &envelope.Data); err != nil {
		d.logger.Warn("queued notification failed",
			zap.String("channel", envelope.Context.Channel),
			zap.String("kind", envelope.Context.EventType),
			zap.String("request", envelope.Context.RequestID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}
	return nil
}

// Close refuses new events, waits for queued deliveries to settle, bounded
// by ctx, then stops the consumer.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d.listener == nil {
		return nil
	}
	var err error
	if closer, ok := d.queue.(interface{ Close(ctx context.Context) error }); ok {
		err = closer.Close(ctx)
	}
	d.listener.Stop()
	return err
}

// DeadLetters returns envelopes that exhausted their retries on the
// in-memory queue.
func (d *Dispatcher) DeadLetters() []*memory.DeadLetter[Event[model.Event]] {
	if queue, ok := d.queue.(*memory.Queue[Event[model.Event]]); ok {
		return queue.DeadLetters()
	}
	return nil
}

func requestID(event *model.Event) string {
	if event.Request == nil {
		return ""
	}
	return event.Request.ID
}

var _ Sink = (*Dispatcher)(nil)
