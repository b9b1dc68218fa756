package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/queue"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue(nil)
	err := q.Publish(context.Background(), "nobody", []byte("x"))
	assert.ErrorContains(t, err, "no subscribers for topic nobody")
}

func TestPublishFansOutWithoutRetry(t *testing.T) {
	q := queue.NewInMemoryQueue(nil)

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string, err error) queue.Handler {
		return func(ctx context.Context, payload []byte) error {
			mu.Lock()
			calls = append(calls, name+":"+string(payload))
			mu.Unlock()
			return err
		}
	}
	require.NoError(t, q.Subscribe("t", record("ok", nil)))
	require.NoError(t, q.Subscribe("t", record("failing", errors.New("boom"))))

	require.NoError(t, q.Publish(context.Background(), "t", []byte("hello")))
	require.NoError(t, q.Close())

	assert.ElementsMatch(t, []string{"ok:hello", "failing:hello"}, calls)
}

func TestHandlersOutliveCancelledPublisher(t *testing.T) {
	q := queue.NewInMemoryQueue(nil)
	var handlerErr error
	require.NoError(t, q.Subscribe("t", func(ctx context.Context, payload []byte) error {
		handlerErr = ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Publish(ctx, "t", nil))
	require.NoError(t, q.Close())

	assert.NoError(t, handlerErr)
}

type MockNotifier struct {
	mu     sync.Mutex
	events []model.TriggerEvent
	err    error
}

func (m *MockNotifier) Notify(ctx context.Context, triggerType model.TriggerType, userEmail string) (*service.TriggerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, model.TriggerEvent{TriggerType: triggerType, UserEmail: userEmail})
	if m.err != nil {
		return nil, m.err
	}
	return &service.TriggerSummary{TriggerType: triggerType, Processed: 1}, nil
}

func TestTriggerSubscriberRoutesEvents(t *testing.T) {
	q := queue.NewInMemoryQueue(nil)
	n := &MockNotifier{}
	require.NoError(t, queue.StartTriggerSubscriber(q, queue.TriggerTopic, n, nil))

	ev := model.TriggerEvent{TriggerType: model.TriggerTestIncomplete, UserEmail: "a@b.com"}
	require.NoError(t, queue.PublishTrigger(context.Background(), q, queue.TriggerTopic, ev))
	require.NoError(t, q.Publish(context.Background(), queue.TriggerTopic, []byte("not json")))
	require.NoError(t, q.Publish(context.Background(), queue.TriggerTopic, []byte(`{"user_email":"a@b.com"}`)))
	require.NoError(t, q.Close())

	assert.Equal(t, []model.TriggerEvent{ev}, n.events)
}
