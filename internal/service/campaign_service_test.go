package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

func seededService(rows int) (*service.CampaignService, *MockSentEmailRepo) {
	ledger := &MockSentEmailRepo{}
	for i := range rows {
		status := model.SentEmailStatusSent
		if i%4 == 0 {
			status = model.SentEmailStatusFailed
		}
		r := model.SentEmail{CampaignID: 1, PassID: "p", RecipientEmail: fmt.Sprintf("u%d@x.com", i), Status: status}
		_ = ledger.Create(context.Background(), &r)
	}
	svc := &service.CampaignService{
		CampaignRepo:  newCampaignRepo(scheduled(1, model.SegmentAllUsers, past())),
		SentEmailRepo: ledger,
	}
	return svc, ledger
}

func TestPagination(t *testing.T) {
	svc, _ := seededService(5)

	page1, pagination1, err := svc.ListSentEmails(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	page3, _, err := svc.ListSentEmails(context.Background(), 1, 3, 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"page": 1, "page_size": 2, "total_count": 5, "total_pages": 3}, pagination1)
	require.Len(t, page1, 2)
	assert.Len(t, page3, 1)

	// newest first
	assert.Greater(t, page1[0].ID, page1[1].ID)
}

func TestPaginationClampsInput(t *testing.T) {
	svc, _ := seededService(3)

	_, pagination, err := svc.ListSentEmails(context.Background(), 1, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination["page"])
	assert.Equal(t, 100, pagination["page_size"])
}

func TestCampaignDetailsWithStats(t *testing.T) {
	svc, _ := seededService(8)

	details, err := svc.GetCampaignDetailsWithStats(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), details.ID)
	assert.Equal(t, map[string]int{"total": 8, "SENT": 6, "FAILED": 2}, details.Stats)
}

func TestCampaignDetailsNotFound(t *testing.T) {
	svc, _ := seededService(0)

	_, err := svc.GetCampaignDetailsWithStats(context.Background(), 9)
	assert.True(t, appErrors.IsNotFound(err))

	_, _, err = svc.ListSentEmails(context.Background(), 9, 1, 10)
	assert.True(t, appErrors.IsNotFound(err))
}
