package event

import (
	"context"

	"github.com/viant/signoff/model"
	"go.uber.org/zap"
)

// LogChannel is the name of the built-in zap notification channel.
const LogChannel = "log"

// Notifier delivers an event to its recipients over one channel.
type Notifier interface {
	Notify(ctx context.Context, event *model.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event *model.Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event *model.Event) error {
	return f(ctx, event)
}

// LogNotifier writes one structured log line per event.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event *model.Event) error {
	fields := []zap.Field{
		zap.String("event", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.Strings("recipients", event.Recipients.Slice()),
		zap.String("actor", event.Actor),
	}
	if request := event.Request; request != nil {
		fields = append(fields,
			zap.String("request", request.ID),
			zap.String("subject", request.Subject.String()),
			zap.String("status", string(request.Status)),
			zap.Int("level", request.CurrentLevel),
		)
	}
	if event.RemovedApprover != "" {
		fields = append(fields, zap.String("removedApprover", event.RemovedApprover))
	}
	n.logger.Info("approval notification", fields...)
	return nil
}
