package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

type SentEmailRepositoryInterface interface {
	Create(ctx context.Context, row *model.SentEmail) error
	ListByCampaign(ctx context.Context, campaignID int64, limit, offset int) ([]model.SentEmail, int, error)
	GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error)
}

// SentEmailRepository is the append-only delivery ledger. Rows are never
// updated or deleted.
type SentEmailRepository struct {
	DB *sqlx.DB
}

// Create inserts a ledger row and fills in its ID and CreatedAt
func (r *SentEmailRepository) Create(ctx context.Context, row *model.SentEmail) error {
	row.CreatedAt = time.Now().UTC()
	query := `
        INSERT INTO sent_emails
        (campaign_id, pass_id, recipient_email, status, sent_at, provider_message_id,
         metadata, error, error_code, error_message, created_at)
        VALUES (:campaign_id, :pass_id, :recipient_email, :status, :sent_at, :provider_message_id,
         :metadata, :error, :error_code, :error_message, :created_at)
        RETURNING id
    `
	stmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.GetContext(ctx, &row.ID, row)
}

func (r *SentEmailRepository) ListByCampaign(ctx context.Context, campaignID int64, limit, offset int) ([]model.SentEmail, int, error) {
	rows := []model.SentEmail{}
	query := `
        SELECT id, campaign_id, pass_id, recipient_email, status, sent_at, provider_message_id,
               metadata, error, error_code, error_message, created_at
        FROM sent_emails
        WHERE campaign_id=$1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `
	if err := r.DB.SelectContext(ctx, &rows, query, campaignID, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM sent_emails WHERE campaign_id=$1`, campaignID); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *SentEmailRepository) GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM sent_emails WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":                            0,
		string(model.SentEmailStatusSent):   0,
		string(model.SentEmailStatusFailed): 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ SentEmailRepositoryInterface = (*SentEmailRepository)(nil)
