// internal/service/campaign_processor.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/metrics"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

// ProcessOptions adjust a manual pass.
type ProcessOptions struct {
	// OverrideRecipient replaces segment resolution with a single address.
	OverrideRecipient string
}

// Result is what one processing pass did to a campaign.
type Result struct {
	CampaignID int64                `json:"campaign_id"`
	PassID     string               `json:"pass_id"`
	Status     model.CampaignStatus `json:"status"`
	Active     bool                 `json:"active"`
	Recipients int                  `json:"recipients"`
	Sent       int                  `json:"sent"`
	Failed     int                  `json:"failed"`
}

// CampaignRunResult is one campaign's entry in a fan-out summary. Error is
// set when the pass failed or never started.
type CampaignRunResult struct {
	CampaignID int64   `json:"campaign_id"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// CampaignProcessor runs one pass over a campaign:
// resolve, render, dispatch, record, reduce, finish.
type CampaignProcessor struct {
	Campaigns  repository.CampaignRepositoryInterface
	Resolver   *RecipientResolver
	Renderer   *TemplateRenderer
	Dispatcher *Dispatcher
	Ledger     *Ledger
	Policy     StatusPolicy
	Logger     *zap.Logger

	// DefaultFrom is the sender for campaigns without a from address.
	DefaultFrom string

	newPassID func() string
}

func NewCampaignProcessor(
	campaigns repository.CampaignRepositoryInterface,
	resolver *RecipientResolver,
	renderer *TemplateRenderer,
	dispatcher *Dispatcher,
	ledger *Ledger,
	policy StatusPolicy,
	logger *zap.Logger,
) *CampaignProcessor {
	return &CampaignProcessor{
		Campaigns:  campaigns,
		Resolver:   resolver,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Ledger:     ledger,
		Policy:     policy,
		Logger:     logging.OrNop(logger),
		newPassID:  uuid.NewString,
	}
}

// Process loads campaign id, claims it and runs a pass. Errors are
// returned to the caller; the campaign has already been marked FAILED
// when the pass itself broke.
func (p *CampaignProcessor) Process(ctx context.Context, id int64, opts ProcessOptions) (*Result, error) {
	c, err := p.Campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.claim(ctx, c.ID); err != nil {
		return nil, err
	}

	var recipients []string
	if opts.OverrideRecipient != "" {
		recipients = []string{opts.OverrideRecipient}
	}
	return p.Run(ctx, c, recipients)
}

func (p *CampaignProcessor) claim(ctx context.Context, id int64) error {
	ok, err := p.Campaigns.Claim(ctx, id)
	if err != nil {
		return appErrors.NewPersistenceError("claim campaign", err)
	}
	if !ok {
		return appErrors.ErrCampaignNotClaimable
	}
	return nil
}

// Run executes a pass on a campaign already claimed by the caller. A nil
// recipients slice means the campaign's segment is resolved. The pass is
// not cancelled with ctx once it has started.
func (p *CampaignProcessor) Run(ctx context.Context, c *model.Campaign, recipients []string) (res *Result, err error) {
	ctx = context.WithoutCancel(ctx)
	res = &Result{CampaignID: c.ID, PassID: p.newPassID()}
	log := p.Logger.With(zap.Int64("campaign_id", c.ID), zap.String("pass_id", res.PassID))

	defer func() {
		if r := recover(); r != nil {
			err = p.abort(ctx, log, res, &appErrors.UnhandledError{Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if recipients == nil {
		recipients, err = p.Resolver.Resolve(ctx, c.Segment, c.Recipients)
		if err != nil {
			return res, p.abort(ctx, log, res, err)
		}
	}
	res.Recipients = len(recipients)

	if len(recipients) == 0 {
		log.Warn("campaign has no recipients")
		return res, p.finish(ctx, log, res, StatusOutcome{Status: model.CampaignStatusFailed})
	}

	from := c.FromAddress
	if from == "" {
		from = p.DefaultFrom
	}
	jobs := make([]Job, 0, len(recipients))
	for _, to := range recipients {
		subject, err := p.Renderer.Render(ctx, c.Subject, to)
		if err != nil {
			return res, p.abort(ctx, log, res, err)
		}
		body, err := p.Renderer.Render(ctx, c.Body, to)
		if err != nil {
			return res, p.abort(ctx, log, res, err)
		}
		jobs = append(jobs, Job{To: to, Subject: subject, HTML: body, From: from})
	}

	log.Info("dispatching campaign", zap.Int("recipients", len(jobs)))
	outcomes := p.Dispatcher.Dispatch(ctx, jobs)
	rows := p.Ledger.Record(ctx, c.ID, res.PassID, outcomes)

	return res, p.finish(ctx, log, res, ReduceStatus(rows, p.Policy))
}

func (p *CampaignProcessor) finish(ctx context.Context, log *zap.Logger, res *Result, out StatusOutcome) error {
	res.Status, res.Active = out.Status, out.Active
	res.Sent, res.Failed = out.Sent, out.Failed
	metrics.CampaignPassesTotal.WithLabelValues(string(out.Status)).Inc()

	if err := p.Campaigns.Finish(ctx, res.CampaignID, out.Status, out.Active); err != nil {
		log.Error("failed to write final campaign status",
			zap.String("status", string(out.Status)), zap.Error(err))
		return appErrors.NewPersistenceError("finish campaign", err)
	}
	log.Info("campaign pass finished",
		zap.String("status", string(out.Status)),
		zap.Bool("active", out.Active),
		zap.Int("sent", out.Sent),
		zap.Int("failed", out.Failed),
	)
	return nil
}

// abort forces the campaign to FAILED/inactive and returns cause,
// classified.
func (p *CampaignProcessor) abort(ctx context.Context, log *zap.Logger, res *Result, cause error) error {
	cause = classify(cause)
	log.Error("campaign pass aborted", zap.Error(cause))
	if ferr := p.finish(ctx, log, res, StatusOutcome{Status: model.CampaignStatusFailed}); ferr != nil {
		return errors.Join(cause, ferr)
	}
	return cause
}

func classify(err error) error {
	var (
		validation  *appErrors.ValidationError
		notFound    *appErrors.NotFoundError
		persistence *appErrors.PersistenceError
		unhandled   *appErrors.UnhandledError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound),
		errors.As(err, &persistence), errors.As(err, &unhandled):
		return err
	default:
		return &appErrors.UnhandledError{Err: err}
	}
}
