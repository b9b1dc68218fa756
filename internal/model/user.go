// internal/model/user.go
package model

import "time"

// User is the read-only projection of an application user that the
// delivery pipeline needs for targeting and template variables.
type User struct {
	ID              int64     `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Role            string    `db:"role" json:"role"`
	MarketingEmails bool      `db:"marketing_emails" json:"marketing_emails"`
	ProductUpdates  bool      `db:"product_updates" json:"product_updates"`
	TestReminders   bool      `db:"test_reminders" json:"test_reminders"`
	IsTestUser      bool      `db:"is_test_user" json:"is_test_user"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
