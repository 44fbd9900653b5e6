package event

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Listener consumes envelopes and hands them to handler; a handler error
// nacks the message so the queue can redeliver it.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(ctx context.Context, event *Event[T], attempt int) error
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// NewListener creates a stopped listener.
func NewListener[T any](publisher *Publisher[T], logger *zap.Logger, handler func(ctx context.Context, event *Event[T], attempt int) error) *Listener[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener[T]{publisher: publisher, handler: handler, logger: logger}
}

// Start runs the consumer goroutine until Stop.
func (l *Listener[T]) Start() {
	l.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		l.cancel = cancel
		l.done = make(chan struct{})
		go l.run(ctx)
	})
}

func (l *Listener[T]) run(ctx context.Context) {
	defer close(l.done)
	for {
		message, err := l.publisher.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			l.logger.Warn("failed to consume event", zap.Error(err))
			continue
		}
		if err = l.handler(ctx, message.T(), message.Attempt()); err != nil {
			if nErr := message.Nack(err); nErr != nil {
				l.logger.Warn("failed to nack event", zap.String("message", message.ID()), zap.Error(nErr))
			}
			continue
		}
		if err = message.Ack(); err != nil {
			l.logger.Warn("failed to ack event", zap.String("message", message.ID()), zap.Error(err))
		}
	}
}

// Stop cancels the consumer and waits for it to exit.
func (l *Listener[T]) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}
