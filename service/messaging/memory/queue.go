package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/signoff/service/messaging"
)

// ErrClosed is returned when publishing to a closed queue.
var ErrClosed = errors.New("queue closed")

// Config for memory queue implementation
type Config struct {
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay"`
	DeadLetter  bool          `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int           `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// DeadLetter is a message that exhausted its retries.
type DeadLetter[T any] struct {
	ID      string
	Payload T
	Err     error
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	mu        sync.Mutex
	processed bool
}

// ID returns the message identifier
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Attempt returns the delivery attempt, starting at 1
func (m *Message[T]) Attempt() int { return m.attempt }

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	if err := m.settle(); err != nil {
		return err
	}
	m.queue.inFlight.Done()
	return nil
}

// Nack requeues the message after RetryDelay until MaxRetries is reached,
// then moves it to the dead letter queue when enabled.
func (m *Message[T]) Nack(err error) error {
	if sErr := m.settle(); sErr != nil {
		return sErr
	}
	q := m.queue
	if m.attempt <= q.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: q, attempt: m.attempt + 1}
		time.AfterFunc(q.config.RetryDelay, func() {
			select {
			case q.messages <- retry:
			case <-q.done:
				q.inFlight.Done()
			}
		})
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, &DeadLetter[T]{ID: m.id, Payload: m.payload, Err: err})
		q.dlqMu.Unlock()
	}
	q.inFlight.Done()
	return nil
}

// Queue implements an in-memory messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*DeadLetter[T]
	config   Config
	dlqMu    sync.Mutex
	inFlight sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
		done:     make(chan struct{}),
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return fmt.Errorf("payload was nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{id: uuid.New().String(), payload: *t, queue: q, attempt: 1}
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	q.inFlight.Add(1)
	q.mu.RUnlock()
	select {
	case q.messages <- msg:
		return nil
	case <-q.done:
		q.inFlight.Done()
		return ErrClosed
	case <-ctx.Done():
		q.inFlight.Done()
		return ctx.Err()
	}
}

// Close refuses further publications, waits for in flight messages like Wait,
// then releases pending retries so that no sender outlives the queue.
func (q *Queue[T]) Close(ctx context.Context) error {
	q.mu.Lock()
	already := q.closed
	q.closed = true
	q.mu.Unlock()
	if already {
		return nil
	}
	err := q.Wait(ctx)
	close(q.done)
	return err
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until every published message was acknowledged or dead
// lettered, or ctx is done.
func (q *Queue[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// DeadLetters returns a copy of the dead letter queue.
func (q *Queue[T]) DeadLetters() []*DeadLetter[T] {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]*DeadLetter[T]{}, q.dlq...)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
