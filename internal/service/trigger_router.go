package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

const DefaultTriggerConcurrency = 4

// TriggerSummary reports what one application event caused.
type TriggerSummary struct {
	TriggerType model.TriggerType   `json:"trigger_type"`
	Processed   int                 `json:"processed"`
	Campaigns   []CampaignRunResult `json:"campaigns"`
}

// TriggerRouter runs every active, SCHEDULED campaign subscribed to an
// event type.
type TriggerRouter struct {
	Campaigns   repository.CampaignRepositoryInterface
	Processor   *CampaignProcessor
	Concurrency int
	Logger      *zap.Logger
}

func NewTriggerRouter(campaigns repository.CampaignRepositoryInterface, processor *CampaignProcessor, logger *zap.Logger) *TriggerRouter {
	return &TriggerRouter{
		Campaigns:   campaigns,
		Processor:   processor,
		Concurrency: DefaultTriggerConcurrency,
		Logger:      logging.OrNop(logger),
	}
}

// Notify processes the campaigns matching triggerType. userEmail is the
// sole recipient of INDIVIDUAL_USERS campaigns. Per-campaign failures are
// logged and reported in the summary, never returned.
func (r *TriggerRouter) Notify(ctx context.Context, triggerType model.TriggerType, userEmail string) (*TriggerSummary, error) {
	if !triggerType.Valid() {
		return nil, appErrors.NewValidationError("unknown trigger type " + string(triggerType))
	}

	campaigns, err := r.Campaigns.ListTriggerMatches(ctx, triggerType)
	if err != nil {
		return nil, appErrors.NewPersistenceError("list trigger campaigns", err)
	}

	summary := &TriggerSummary{
		TriggerType: triggerType,
		Campaigns:   make([]CampaignRunResult, len(campaigns)),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(r.Concurrency, 1))
	for i, c := range campaigns {
		g.Go(func() error {
			entry := r.run(ctx, c, userEmail)
			mu.Lock()
			summary.Campaigns[i] = entry
			if entry.Result != nil {
				summary.Processed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.Logger.Info("trigger handled",
		zap.String("trigger_type", string(triggerType)),
		zap.Int("matched", len(campaigns)),
		zap.Int("processed", summary.Processed),
	)
	return summary, nil
}

func (r *TriggerRouter) run(ctx context.Context, c *model.Campaign, userEmail string) CampaignRunResult {
	entry := CampaignRunResult{CampaignID: c.ID}
	log := r.Logger.With(zap.Int64("campaign_id", c.ID))

	var recipients []string
	if c.Segment == model.SegmentIndividualUsers {
		if userEmail == "" {
			err := appErrors.NewValidationError("INDIVIDUAL_USERS trigger campaign needs a user email")
			log.Warn("skipping trigger campaign", zap.Error(err))
			entry.Error = err.Error()
			return entry
		}
		recipients = []string{userEmail}
	}

	if err := r.Processor.claim(ctx, c.ID); err != nil {
		log.Warn("trigger campaign not claimed", zap.Error(err))
		entry.Error = err.Error()
		return entry
	}

	res, err := r.Processor.Run(ctx, c, recipients)
	if err != nil {
		log.Error("trigger campaign failed", zap.Error(err))
		entry.Error = err.Error()
		return entry
	}
	entry.Result = res
	return entry
}
