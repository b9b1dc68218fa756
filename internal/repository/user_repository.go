package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

// UserRepositoryInterface defines the read-only user queries the pipeline needs
type UserRepositoryInterface interface {
	// ListOptedIn returns users with marketing emails enabled, optionally
	// restricted to internal test accounts.
	ListOptedIn(ctx context.Context, testUsersOnly bool) ([]model.User, error)
	// FindOptedInByEmails returns the opted-in users among emails.
	FindOptedInByEmails(ctx context.Context, emails []string) ([]model.User, error)
	// GetByEmail returns nil, nil when no user has that address.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sqlx.DB
}

const userColumns = `id, email, first_name, last_name, role, marketing_emails,
    product_updates, test_reminders, is_test_user, created_at`

func (r *UserRepository) ListOptedIn(ctx context.Context, testUsersOnly bool) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE marketing_emails`
	if testUsersOnly {
		query += ` AND is_test_user`
	}
	query += ` ORDER BY id`

	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) FindOptedInByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	if len(emails) == 0 {
		return []model.User{}, nil
	}
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(strings.TrimSpace(e))
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE marketing_emails AND lower(email) = ANY($1)`
	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users, query, pq.Array(lowered)); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	var u model.User
	if err := r.DB.GetContext(ctx, &u, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, err
	}
	return &u, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
