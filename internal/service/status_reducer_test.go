package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

func ledgerRows(sent, failed int) []model.SentEmail {
	var rows []model.SentEmail
	for range sent {
		rows = append(rows, model.SentEmail{Status: model.SentEmailStatusSent})
	}
	for range failed {
		rows = append(rows, model.SentEmail{Status: model.SentEmailStatusFailed})
	}
	return rows
}

func TestReduceStatus(t *testing.T) {
	tests := []struct {
		name   string
		rows   []model.SentEmail
		policy service.StatusPolicy
		want   service.StatusOutcome
	}{
		{
			name: "all sent",
			rows: ledgerRows(3, 0),
			want: service.StatusOutcome{Status: model.CampaignStatusCompleted, Active: false, Sent: 3},
		},
		{
			name: "partial failure stays active",
			rows: ledgerRows(4, 1),
			want: service.StatusOutcome{Status: model.CampaignStatusFailed, Active: true, Sent: 4, Failed: 1},
		},
		{
			name:   "partial failure deactivates by policy",
			rows:   ledgerRows(4, 1),
			policy: service.StatusPolicy{DeactivateOnPartialFailure: true},
			want:   service.StatusOutcome{Status: model.CampaignStatusFailed, Active: false, Sent: 4, Failed: 1},
		},
		{
			name: "all failed",
			rows: ledgerRows(0, 2),
			want: service.StatusOutcome{Status: model.CampaignStatusFailed, Active: true, Failed: 2},
		},
		{
			name: "no rows",
			rows: nil,
			want: service.StatusOutcome{Status: model.CampaignStatusFailed, Active: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.ReduceStatus(tt.rows, tt.policy))
		})
	}
}
