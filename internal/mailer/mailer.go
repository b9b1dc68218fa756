// Package mailer is the outbound mail transport used by the dispatcher.
package mailer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/config"
)

// Message is one fully rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	From    string
}

// Receipt is what the provider reports for an accepted message.
type Receipt struct {
	ID     string
	SentAt time.Time
}

// Mailer sends a single message. Implementations must be safe for
// concurrent use; the dispatcher calls Send from several goroutines.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// New returns the SMTP mailer when an SMTP URL is configured and the log
// mailer otherwise.
func New(conf config.MailConfig, logger *zap.Logger) (Mailer, error) {
	if conf.SMTPURL == "" {
		logger.Warn("SMTP_URL not set, emails will only be logged")
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(conf.SMTPURL)
}
