// internal/model/sent_email.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type SentEmailStatus string

const (
	SentEmailStatusSent   SentEmailStatus = "SENT"
	SentEmailStatusFailed SentEmailStatus = "FAILED"
)

// Error codes recorded on FAILED ledger rows.
const (
	ErrorCodeProvider          = "PROVIDER_ERROR"
	ErrorCodeLedgerWriteFailed = "LEDGER_WRITE_FAILED"
)

// SentEmail is one append-only ledger row: the outcome of sending a
// campaign to one recipient during one processing pass.
type SentEmail struct {
	ID                int64           `db:"id" json:"id"`
	CampaignID        int64           `db:"campaign_id" json:"campaign_id"`
	PassID            string          `db:"pass_id" json:"pass_id"`
	RecipientEmail    string          `db:"recipient_email" json:"recipient_email"`
	Status            SentEmailStatus `db:"status" json:"status"`
	SentAt            *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	ProviderMessageID *string         `db:"provider_message_id" json:"provider_message_id,omitempty"`
	Metadata          *EmailMetadata  `db:"metadata" json:"metadata,omitempty"`
	Error             *string         `db:"error" json:"error,omitempty"`
	ErrorCode         *string         `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage      *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// EmailMetadata is stored as jsonb next to successful sends.
type EmailMetadata struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Value encodes as a string; lib/pq would send []byte as bytea.
func (m EmailMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *EmailMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("email metadata: unsupported type %T", src)
	}
}
