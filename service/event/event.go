// Package event delivers approval events to notification channels, either
// synchronously or through a queue with retries.
package event

import (
	"time"

	"github.com/viant/signoff/internal/clock"
)

// Context describes the delivery of one event to one channel.
type Context struct {
	RequestID string `json:"requestID"`
	EventType string `json:"eventType"`
	Channel   string `json:"channel"`
}

// Event is the queued envelope of a payload.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

// NewEvent creates an envelope.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
