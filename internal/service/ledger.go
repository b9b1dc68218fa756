package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/metrics"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

// Ledger writes one sent_emails row per dispatch outcome.
type Ledger struct {
	Repo   repository.SentEmailRepositoryInterface
	Logger *zap.Logger
}

func NewLedger(repo repository.SentEmailRepositoryInterface, logger *zap.Logger) *Ledger {
	return &Ledger{Repo: repo, Logger: logging.OrNop(logger)}
}

// Record persists the outcomes of one pass and returns the rows as they
// should be counted. The result always has len(outcomes) rows: a row that
// could not be written at all is still returned, as FAILED.
func (l *Ledger) Record(ctx context.Context, campaignID int64, passID string, outcomes []Outcome) []model.SentEmail {
	rows := make([]model.SentEmail, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, l.record(ctx, campaignID, passID, o))
	}
	return rows
}

func (l *Ledger) record(ctx context.Context, campaignID int64, passID string, o Outcome) model.SentEmail {
	log := l.Logger.With(
		zap.Int64("campaign_id", campaignID),
		zap.String("pass_id", passID),
		zap.String("recipient", o.Job.To),
	)

	if !o.OK() {
		row := failedRow(campaignID, passID, o.Job.To, o.Failure.Code, o.Failure.Message)
		if err := l.Repo.Create(ctx, &row); err != nil {
			metrics.LedgerWriteFailures.Inc()
			log.Error("failed to record failed send",
				zap.Error(appErrors.NewPersistenceError("insert sent_email", err)))
		}
		return row
	}

	sentAt := o.Delivery.SentAt
	messageID := o.Delivery.MessageID
	row := model.SentEmail{
		CampaignID:        campaignID,
		PassID:            passID,
		RecipientEmail:    o.Job.To,
		Status:            model.SentEmailStatusSent,
		SentAt:            &sentAt,
		ProviderMessageID: &messageID,
		Metadata:          &model.EmailMetadata{From: o.Job.From, To: o.Job.To},
	}
	err := l.Repo.Create(ctx, &row)
	if err == nil {
		return row
	}

	metrics.LedgerWriteFailures.Inc()
	log.Warn("failed to record successful send, downgrading to FAILED",
		zap.String("provider_message_id", messageID),
		zap.Error(err),
	)

	fallback := failedRow(campaignID, passID, o.Job.To, model.ErrorCodeLedgerWriteFailed,
		"sent as "+messageID+" but ledger insert failed: "+err.Error())
	if ferr := l.Repo.Create(ctx, &fallback); ferr != nil {
		metrics.LedgerWriteFailures.Inc()
		log.Error("delivered email has no ledger row",
			zap.String("provider_message_id", messageID),
			zap.Error(appErrors.NewPersistenceError("insert sent_email", ferr)),
		)
	}
	return fallback
}

func failedRow(campaignID int64, passID, recipient, code, message string) model.SentEmail {
	errText := code + ": " + message
	return model.SentEmail{
		CampaignID:     campaignID,
		PassID:         passID,
		RecipientEmail: recipient,
		Status:         model.SentEmailStatusFailed,
		Error:          &errText,
		ErrorCode:      &code,
		ErrorMessage:   &message,
	}
}
