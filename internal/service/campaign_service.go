// internal/service/campaign_service.go
package service

import (
	"context"

	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

// CampaignService serves the read side: campaigns with their ledger
// counts, and the ledger itself.
type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	SentEmailRepo repository.SentEmailRepositoryInterface
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

// GetCampaignDetailsWithStats fetches a campaign and its sent_emails
// counts by status
func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID int64) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.SentEmailRepo.GetCampaignStats(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// ListSentEmails fetches a campaign's ledger rows with pagination, newest
// first
func (s *CampaignService) ListSentEmails(ctx context.Context, campaignID int64, page, pageSize int) ([]model.SentEmail, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, nil, err
	}

	rows, total, err := s.SentEmailRepo.ListByCampaign(ctx, campaignID, pageSize, offset)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return rows, pagination, nil
}
