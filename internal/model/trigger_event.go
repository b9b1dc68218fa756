// internal/model/trigger_event.go
package model

// TriggerEvent is published by upstream flows (signup, purchase,
// test-incomplete) and consumed by the trigger router.
type TriggerEvent struct {
	TriggerType TriggerType `json:"trigger_type" validate:"required"`
	UserEmail   string      `json:"user_email,omitempty" validate:"omitempty,email"`
}
