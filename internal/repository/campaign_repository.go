package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	ListTriggerMatches(ctx context.Context, trigger model.TriggerType) ([]*model.Campaign, error)

	// Claim atomically moves a campaign from SCHEDULED to SENDING. It
	// reports false when the campaign was not SCHEDULED any more.
	Claim(ctx context.Context, id int64) (bool, error)
	// ClaimNextDue claims one due SCHEDULE campaign, or returns nil when
	// nothing is due. Concurrent callers never receive the same campaign.
	ClaimNextDue(ctx context.Context, now time.Time) (*model.Campaign, error)
	// Finish writes the final status of a pass on a SENDING campaign.
	Finish(ctx context.Context, id int64, status model.CampaignStatus, active bool) error
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = `id, name, subject, body, from_address, segment, recipients,
    schedule_type, scheduled_for, trigger_type, status, active, created_at, updated_at`

// ====================== Reads ======================

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	if err := r.DB.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListTriggerMatches(ctx context.Context, trigger model.TriggerType) ([]*model.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE schedule_type=$1 AND trigger_type=$2 AND active AND status=$3
        ORDER BY id
    `
	campaigns := []*model.Campaign{}
	err := r.DB.SelectContext(ctx, &campaigns, query,
		model.ScheduleTypeTrigger, trigger, model.CampaignStatusScheduled)
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ====================== Lifecycle ======================

func (r *CampaignRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.ExecContext(ctx, query, model.CampaignStatusSending, id, model.CampaignStatusScheduled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CampaignRepository) ClaimNextDue(ctx context.Context, now time.Time) (*model.Campaign, error) {
	query := `
        UPDATE campaigns SET status=$1, updated_at=NOW()
        WHERE id = (
            SELECT id FROM campaigns
            WHERE schedule_type=$2 AND status=$3 AND active AND scheduled_for <= $4
            ORDER BY scheduled_for, id
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + campaignColumns
	var c model.Campaign
	err := r.DB.GetContext(ctx, &c, query,
		model.CampaignStatusSending, model.ScheduleTypeSchedule, model.CampaignStatusScheduled, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Finish(ctx context.Context, id int64, status model.CampaignStatus, active bool) error {
	query := `UPDATE campaigns SET status=$1, active=$2, updated_at=NOW() WHERE id=$3 AND status=$4`
	_, err := r.DB.ExecContext(ctx, query, status, active, id, model.CampaignStatusSending)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
