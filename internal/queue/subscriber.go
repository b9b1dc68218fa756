package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

// Notifier is the part of the trigger router the subscriber needs.
type Notifier interface {
	Notify(ctx context.Context, triggerType model.TriggerType, userEmail string) (*service.TriggerSummary, error)
}

// PublishTrigger encodes ev onto topic.
func PublishTrigger(ctx context.Context, q Queue, topic string, ev model.TriggerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.Publish(ctx, topic, payload)
}

// StartTriggerSubscriber routes every trigger event on topic to n.
func StartTriggerSubscriber(q Queue, topic string, n Notifier, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	validate := validator.New()
	return q.Subscribe(topic, func(ctx context.Context, payload []byte) error {
		var ev model.TriggerEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			// Malformed events can never succeed.
			logger.Warn("⚠️ invalid trigger payload", zap.Error(err))
			return nil
		}
		if err := validate.Struct(ev); err != nil {
			logger.Warn("⚠️ invalid trigger event", zap.Error(err))
			return nil
		}

		summary, err := n.Notify(ctx, ev.TriggerType, ev.UserEmail)
		if err != nil {
			return fmt.Errorf("notify %s: %w", ev.TriggerType, err)
		}
		logger.Info("✅ trigger processed",
			zap.String("trigger_type", string(ev.TriggerType)),
			zap.Int("processed", summary.Processed),
		)
		return nil
	})
}
