package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

// RecipientResolver turns a campaign segment into the list of addresses
// to send to. Only users with marketing emails enabled are ever returned.
type RecipientResolver struct {
	Users    repository.UserRepositoryInterface
	validate *validator.Validate
}

func NewRecipientResolver(users repository.UserRepositoryInterface) *RecipientResolver {
	return &RecipientResolver{Users: users, validate: validator.New()}
}

// Resolve returns the addresses for segment. The result is not
// deduplicated. For INDIVIDUAL_USERS either every explicit address
// belongs to an opted-in user or the call fails naming all offenders.
func (r *RecipientResolver) Resolve(ctx context.Context, segment model.Segment, explicit []string) ([]string, error) {
	switch segment {
	case model.SegmentAllUsers:
		return r.optedIn(ctx, false)
	case model.SegmentTestUsers:
		return r.optedIn(ctx, true)
	case model.SegmentIndividualUsers:
		return r.individual(ctx, explicit)
	default:
		return nil, appErrors.NewValidationError("unknown segment " + string(segment))
	}
}

func (r *RecipientResolver) optedIn(ctx context.Context, testUsersOnly bool) ([]string, error) {
	users, err := r.Users.ListOptedIn(ctx, testUsersOnly)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return emails, nil
}

func (r *RecipientResolver) individual(ctx context.Context, explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return nil, appErrors.NewValidationError("INDIVIDUAL_USERS requires at least one recipient")
	}

	addresses := make([]string, 0, len(explicit))
	var offending []string
	wellFormed := make([]string, 0, len(explicit))
	for _, raw := range explicit {
		addr := strings.TrimSpace(raw)
		addresses = append(addresses, addr)
		if err := r.validate.Var(addr, "required,email"); err != nil {
			offending = append(offending, addr)
			continue
		}
		wellFormed = append(wellFormed, addr)
	}

	users, err := r.Users.FindOptedInByEmails(ctx, wellFormed)
	if err != nil {
		return nil, err
	}
	eligible := make(map[string]struct{}, len(users))
	for _, u := range users {
		eligible[strings.ToLower(u.Email)] = struct{}{}
	}
	for _, addr := range wellFormed {
		if _, ok := eligible[strings.ToLower(addr)]; !ok {
			offending = append(offending, addr)
		}
	}

	if len(offending) > 0 {
		return nil, appErrors.NewValidationError("recipients are not opted-in users", offending...)
	}
	return addresses, nil
}
