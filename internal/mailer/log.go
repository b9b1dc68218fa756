package mailer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogMailer writes messages to the log instead of sending them. Used in
// development and when no SMTP server is configured.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) (Receipt, error) {
	id := uuid.NewString()
	m.logger.Info("email (log mailer)",
		zap.String("message_id", id),
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return Receipt{ID: id, SentAt: time.Now().UTC()}, nil
}

var _ Mailer = (*LogMailer)(nil)
