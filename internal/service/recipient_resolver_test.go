package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

func resolverUsers() *MockUserRepo {
	return &MockUserRepo{users: []model.User{
		{Email: "a@x.com", MarketingEmails: true},
		{Email: "b@x.com", MarketingEmails: true, IsTestUser: true},
		{Email: "c@x.com", MarketingEmails: true},
		{Email: "optout@x.com", MarketingEmails: false},
		{Email: "qa-optout@x.com", MarketingEmails: false, IsTestUser: true},
	}}
}

func TestResolveSegments(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	all, err := r.Resolve(context.Background(), model.SegmentAllUsers, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, all)

	testUsers, err := r.Resolve(context.Background(), model.SegmentTestUsers, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, testUsers)
}

func TestResolveIndividualUsers(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	got, err := r.Resolve(context.Background(), model.SegmentIndividualUsers, []string{"a@x.com", " C@x.com ", "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "C@x.com", "a@x.com"}, got, "input order kept, not deduplicated")
}

func TestResolveIndividualUsersRejectsWholeList(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	got, err := r.Resolve(context.Background(), model.SegmentIndividualUsers,
		[]string{"a@x.com", "b@x.com", "optout@x.com", "c@x.com"})
	require.Error(t, err)
	assert.Nil(t, got)

	var verr *appErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"optout@x.com"}, verr.Addresses)
}

func TestResolveIndividualUsersReportsEveryOffender(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	_, err := r.Resolve(context.Background(), model.SegmentIndividualUsers,
		[]string{"not-an-email", "a@x.com", "ghost@x.com", "optout@x.com"})

	var verr *appErrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"not-an-email", "ghost@x.com", "optout@x.com"}, verr.Addresses)
}

func TestResolveIndividualUsersRequiresList(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	_, err := r.Resolve(context.Background(), model.SegmentIndividualUsers, nil)
	assert.True(t, appErrors.IsValidation(err))
}

func TestResolveUnknownSegment(t *testing.T) {
	r := service.NewRecipientResolver(resolverUsers())

	_, err := r.Resolve(context.Background(), model.Segment("VIP_USERS"), nil)
	require.True(t, appErrors.IsValidation(err))
	assert.Contains(t, err.Error(), "unknown segment VIP_USERS")
}
