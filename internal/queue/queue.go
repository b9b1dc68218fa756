package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/logging"
)

// TriggerTopic is the default topic for model.TriggerEvent payloads.
const TriggerTopic = "campaign_triggers"

// Handler processes one message. Messages are not redelivered when it
// fails.
type Handler func(ctx context.Context, payload []byte) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// InMemoryQueue delivers each message to every subscriber of the topic on
// its own goroutine.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]Handler),
		logger:   logging.OrNop(logger),
	}
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	// Handlers outlive the publishing request.
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			if err := handler(ctx, payload); err != nil {
				q.logger.Warn("message handler failed", zap.String("topic", topic), zap.Error(err))
			}
		}()
	}
	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close waits for in-flight handlers.
func (q *InMemoryQueue) Close() error {
	q.wg.Wait()
	return nil
}
