package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/mailer"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

// --- Users ---

type MockUserRepo struct {
	mu      sync.Mutex
	users   []model.User
	err     error
	lookups int
}

func (m *MockUserRepo) ListOptedIn(ctx context.Context, testUsersOnly bool) ([]model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []model.User{}
	for _, u := range m.users {
		if u.MarketingEmails && (!testUsersOnly || u.IsTestUser) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockUserRepo) FindOptedInByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := map[string]bool{}
	for _, e := range emails {
		want[strings.ToLower(e)] = true
	}
	out := []model.User{}
	for _, u := range m.users {
		if u.MarketingEmails && want[strings.ToLower(u.Email)] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func optedIn(emails ...string) []model.User {
	users := make([]model.User, 0, len(emails))
	for i, e := range emails {
		users = append(users, model.User{
			ID:              int64(i + 1),
			Email:           e,
			FirstName:       strings.Split(e, "@")[0],
			MarketingEmails: true,
		})
	}
	return users
}

// --- Campaigns ---

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	claimErr  error
	finishErr error
	finished  []int64
}

func newCampaignRepo(cs ...*model.Campaign) *MockCampaignRepo {
	m := &MockCampaignRepo{campaigns: map[int64]*model.Campaign{}}
	for _, c := range cs {
		m.campaigns[c.ID] = c
	}
	return m
}

func (m *MockCampaignRepo) get(id int64) model.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.campaigns[id]
}

func (m *MockCampaignRepo) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepo) ListTriggerMatches(ctx context.Context, trigger model.TriggerType) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.ScheduleType == model.ScheduleTypeTrigger && c.TriggerType != nil && *c.TriggerType == trigger &&
			c.Active && c.Status == model.CampaignStatusScheduled {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCampaignRepo) Claim(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	c, ok := m.campaigns[id]
	if !ok || c.Status != model.CampaignStatusScheduled {
		return false, nil
	}
	c.Status = model.CampaignStatusSending
	return true, nil
}

func (m *MockCampaignRepo) ClaimNextDue(ctx context.Context, now time.Time) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*model.Campaign
	for _, c := range m.campaigns {
		if c.ScheduleType == model.ScheduleTypeSchedule && c.Status == model.CampaignStatusScheduled &&
			c.Active && c.ScheduledFor != nil && !c.ScheduledFor.After(now) {
			due = append(due, c)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledFor.Equal(*due[j].ScheduledFor) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledFor.Before(*due[j].ScheduledFor)
	})
	due[0].Status = model.CampaignStatusSending
	cp := *due[0]
	return &cp, nil
}

func (m *MockCampaignRepo) Finish(ctx context.Context, id int64, status model.CampaignStatus, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finishErr != nil {
		return m.finishErr
	}
	c := m.campaigns[id]
	if c.Status != model.CampaignStatusSending {
		return nil
	}
	c.Status, c.Active = status, active
	m.finished = append(m.finished, id)
	return nil
}

func scheduled(id int64, segment model.Segment, at time.Time) *model.Campaign {
	return &model.Campaign{
		ID:           id,
		Name:         fmt.Sprintf("campaign %d", id),
		Subject:      "Hello {{Users.firstName}}",
		Body:         "<p>Hi {{Users.firstName}}</p>",
		FromAddress:  "news@dmvprep.app",
		Segment:      segment,
		ScheduleType: model.ScheduleTypeSchedule,
		ScheduledFor: &at,
		Status:       model.CampaignStatusScheduled,
		Active:       true,
	}
}

func triggered(id int64, segment model.Segment, trigger model.TriggerType) *model.Campaign {
	return &model.Campaign{
		ID:           id,
		Name:         fmt.Sprintf("campaign %d", id),
		Subject:      "Welcome {{Users.firstName}}",
		Body:         "<p>Hi {{Users.firstName}}, welcome</p>",
		FromAddress:  "hello@dmvprep.app",
		Segment:      segment,
		ScheduleType: model.ScheduleTypeTrigger,
		TriggerType:  &trigger,
		Status:       model.CampaignStatusScheduled,
		Active:       true,
	}
}

// --- Ledger ---

type MockSentEmailRepo struct {
	mu     sync.Mutex
	rows   []model.SentEmail
	nextID int64
	// fail decides whether a given insert fails.
	fail func(row *model.SentEmail) error
}

func (m *MockSentEmailRepo) Create(ctx context.Context, row *model.SentEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		if err := m.fail(row); err != nil {
			return err
		}
	}
	m.nextID++
	row.ID = m.nextID
	row.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *row)
	return nil
}

func (m *MockSentEmailRepo) ListByCampaign(ctx context.Context, campaignID int64, limit, offset int) ([]model.SentEmail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.SentEmail
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].CampaignID == campaignID {
			all = append(all, m.rows[i])
		}
	}
	if offset >= len(all) {
		return []model.SentEmail{}, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (m *MockSentEmailRepo) GetCampaignStats(ctx context.Context, campaignID int64) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"total": 0, "SENT": 0, "FAILED": 0}
	for _, r := range m.rows {
		if r.CampaignID == campaignID {
			stats[string(r.Status)]++
			stats["total"]++
		}
	}
	return stats, nil
}

func (m *MockSentEmailRepo) count(campaignID int64, status model.SentEmailStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.CampaignID == campaignID && r.Status == status {
			n++
		}
	}
	return n
}

// --- Mailer ---

type MockMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]bool
	panicOn map[string]bool
	// onSend runs before every send.
	onSend func(msg mailer.Message)
	seq    int
}

var errProviderDown = errors.New("provider rejected message")

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) (mailer.Receipt, error) {
	if m.onSend != nil {
		m.onSend(msg)
	}
	if m.panicOn[msg.To] {
		panic("transport exploded")
	}
	if m.failFor[msg.To] {
		return mailer.Receipt{}, errProviderDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.sent = append(m.sent, msg)
	return mailer.Receipt{ID: fmt.Sprintf("msg-%d", m.seq), SentAt: time.Now().UTC()}, nil
}

func (m *MockMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.To)
	}
	sort.Strings(out)
	return out
}
