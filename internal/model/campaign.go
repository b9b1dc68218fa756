// internal/model/campaign.go
package model

import (
	"time"

	"github.com/lib/pq"
)

// Segment selects which users receive a campaign.
type Segment string

const (
	SegmentAllUsers        Segment = "ALL_USERS"
	SegmentTestUsers       Segment = "TEST_USERS"
	SegmentIndividualUsers Segment = "INDIVIDUAL_USERS"
)

type ScheduleType string

const (
	ScheduleTypeSchedule ScheduleType = "SCHEDULE"
	ScheduleTypeTrigger  ScheduleType = "TRIGGER"
)

// TriggerType names the application event a TRIGGER campaign listens for.
type TriggerType string

const (
	TriggerUserSignup        TriggerType = "USER_SIGNUP"
	TriggerPurchaseCompleted TriggerType = "PURCHASE_COMPLETED"
	TriggerTestIncomplete    TriggerType = "TEST_INCOMPLETE"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerUserSignup, TriggerPurchaseCompleted, TriggerTestIncomplete:
		return true
	}
	return false
}

// CampaignStatus only moves SCHEDULED -> SENDING -> COMPLETED|FAILED.
type CampaignStatus string

const (
	CampaignStatusScheduled CampaignStatus = "SCHEDULED"
	CampaignStatusSending   CampaignStatus = "SENDING"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusFailed    CampaignStatus = "FAILED"
)

type Campaign struct {
	ID           int64          `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Subject      string         `db:"subject" json:"subject"`
	Body         string         `db:"body" json:"body"`
	FromAddress  string         `db:"from_address" json:"from_address"`
	Segment      Segment        `db:"segment" json:"segment"`
	Recipients   pq.StringArray `db:"recipients" json:"recipients,omitempty"`
	ScheduleType ScheduleType   `db:"schedule_type" json:"schedule_type"`
	ScheduledFor *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	TriggerType  *TriggerType   `db:"trigger_type" json:"trigger_type,omitempty"`
	Status       CampaignStatus `db:"status" json:"status"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
