package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/lock"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

const (
	DefaultSweepConcurrency = 4
	DefaultPollInterval     = time.Minute
	DefaultSweepLockTTL     = 10 * time.Minute

	sweepLockKey = "schedule-sweep"
)

// Scheduler hands out due campaigns. Each campaign it returns is already
// claimed for the caller; concurrent callers never get the same one.
type Scheduler interface {
	ClaimNextDue(ctx context.Context, now time.Time) (*model.Campaign, error)
}

// SweepSummary reports one sweep. Skipped is set when another sweep held
// the lock.
type SweepSummary struct {
	Skipped   bool                `json:"skipped,omitempty"`
	Processed int                 `json:"processed"`
	Campaigns []CampaignRunResult `json:"campaigns"`
}

// SchedulePoller processes every SCHEDULE campaign that has come due.
type SchedulePoller struct {
	Scheduler   Scheduler
	Processor   *CampaignProcessor
	Lock        lock.Locker
	LockTTL     time.Duration
	Concurrency int
	Interval    time.Duration
	Logger      *zap.Logger

	now func() time.Time
}

func NewSchedulePoller(scheduler Scheduler, processor *CampaignProcessor, locker lock.Locker, logger *zap.Logger) *SchedulePoller {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &SchedulePoller{
		Scheduler:   scheduler,
		Processor:   processor,
		Lock:        locker,
		LockTTL:     DefaultSweepLockTTL,
		Concurrency: DefaultSweepConcurrency,
		Interval:    DefaultPollInterval,
		Logger:      logging.OrNop(logger),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Sweep drains every campaign due at the time the sweep starts. Failed
// campaigns are logged and reported; only a failing store or lock aborts
// the sweep.
func (p *SchedulePoller) Sweep(ctx context.Context) (*SweepSummary, error) {
	unlock, ok, err := p.Lock.TryLock(ctx, sweepLockKey, p.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.Logger.Info("sweep already running elsewhere, skipping")
		return &SweepSummary{Skipped: true, Campaigns: []CampaignRunResult{}}, nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			p.Logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	now := p.now()
	summary := &SweepSummary{Campaigns: []CampaignRunResult{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for range max(p.Concurrency, 1) {
		g.Go(func() error {
			for {
				c, err := p.Scheduler.ClaimNextDue(gctx, now)
				if err != nil {
					return appErrors.NewPersistenceError("claim next due campaign", err)
				}
				if c == nil {
					return nil
				}

				entry := CampaignRunResult{CampaignID: c.ID}
				res, err := p.Processor.Run(gctx, c, nil)
				if err != nil {
					p.Logger.Error("scheduled campaign failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
					entry.Error = err.Error()
				} else {
					entry.Result = res
				}

				mu.Lock()
				summary.Campaigns = append(summary.Campaigns, entry)
				if entry.Result != nil {
					summary.Processed++
				}
				mu.Unlock()
			}
		})
	}
	err = g.Wait()

	p.Logger.Info("sweep finished",
		zap.Int("claimed", len(summary.Campaigns)),
		zap.Int("processed", summary.Processed),
	)
	return summary, err
}

// Start sweeps immediately and then every Interval until stop is called.
// stop waits for a running sweep to finish.
func (p *SchedulePoller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		interval := p.Interval
		if interval <= 0 {
			interval = DefaultPollInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := p.Sweep(ctx); err != nil && ctx.Err() == nil {
				p.Logger.Error("sweep failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
