// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCampaignNotClaimable is returned when a pass could not move the
// campaign from SCHEDULED to SENDING because another pass already did, or
// the campaign is no longer schedulable.
var ErrCampaignNotClaimable = errors.New("campaign is not in SCHEDULED state")

// ValidationError reports bad input: unknown segments, missing or
// ineligible explicit recipients, malformed requests.
type ValidationError struct {
	Message   string
	Addresses []string
}

func (e *ValidationError) Error() string {
	if len(e.Addresses) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Addresses, ", "))
}

func NewValidationError(msg string, addresses ...string) error {
	return &ValidationError{Message: msg, Addresses: addresses}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

// Helper constructor
func NewCampaignNotFound(id int64) error {
	return &NotFoundError{Entity: "campaign", ID: id}
}

// ProviderError is a single failed send at the mail transport. It never
// propagates past the dispatcher; it is converted into a FAILED ledger row.
type ProviderError struct {
	Recipient string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Recipient, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError is a failed campaign or ledger write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// UnhandledError wraps anything else that aborted a processing pass,
// including recovered panics.
type UnhandledError struct {
	Err error
}

func (e *UnhandledError) Error() string {
	return fmt.Sprintf("unhandled: %v", e.Err)
}

func (e *UnhandledError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
