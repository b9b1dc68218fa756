package service

import "github.com/unclebandit/dmvprep-mailer/internal/model"

// StatusPolicy tunes how a partially failed pass is folded.
type StatusPolicy struct {
	// DeactivateOnPartialFailure sets active=false when some sends
	// failed. By default such a campaign stays active.
	DeactivateOnPartialFailure bool
}

// StatusOutcome is the campaign state a pass ends in.
type StatusOutcome struct {
	Status model.CampaignStatus
	Active bool
	Sent   int
	Failed int
}

// ReduceStatus folds the ledger rows of one pass. An empty pass is a
// failure: there was nobody to send to.
func ReduceStatus(rows []model.SentEmail, policy StatusPolicy) StatusOutcome {
	var out StatusOutcome
	for _, r := range rows {
		if r.Status == model.SentEmailStatusSent {
			out.Sent++
		} else {
			out.Failed++
		}
	}

	switch {
	case len(rows) == 0:
		out.Status, out.Active = model.CampaignStatusFailed, false
	case out.Failed == 0:
		out.Status, out.Active = model.CampaignStatusCompleted, false
	default:
		out.Status = model.CampaignStatusFailed
		out.Active = !policy.DeactivateOnPartialFailure
	}
	return out
}
