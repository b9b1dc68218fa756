package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/mailer"
	"github.com/unclebandit/dmvprep-mailer/internal/metrics"
	"github.com/unclebandit/dmvprep-mailer/internal/model"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
)

// Job is one rendered message waiting to be sent.
type Job struct {
	To      string
	Subject string
	HTML    string
	From    string
}

// Delivery is the provider's acknowledgement of a sent job.
type Delivery struct {
	MessageID string
	SentAt    time.Time
}

// Failure describes why a job was not sent.
type Failure struct {
	Code    string
	Message string
	Err     error
}

// Outcome is the result of one job: exactly one of Delivery or Failure
// is set.
type Outcome struct {
	Job      Job
	Delivery *Delivery
	Failure  *Failure
}

func (o Outcome) OK() bool { return o.Delivery != nil }

// Dispatcher sends jobs through the mailer in fixed-size batches. Jobs in
// a batch are sent concurrently; batches run one after another with a
// fixed pause between them. It does not adapt to provider throttling.
type Dispatcher struct {
	Mailer    mailer.Mailer
	BatchSize int
	Delay     time.Duration
	Logger    *zap.Logger

	sleep func(time.Duration)
}

func NewDispatcher(m mailer.Mailer, batchSize int, delay time.Duration, logger *zap.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = DefaultBatchDelay
	}
	return &Dispatcher{
		Mailer:    m,
		BatchSize: batchSize,
		Delay:     delay,
		Logger:    logging.OrNop(logger),
		sleep:     time.Sleep,
	}
}

// Dispatch returns one outcome per job, in input order. A failing or
// panicking send never affects other jobs.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	for start := 0; start < len(jobs); start += d.BatchSize {
		if start > 0 && d.Delay > 0 {
			d.sleep(d.Delay)
		}
		end := min(start+d.BatchSize, len(jobs))

		began := time.Now()
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcomes[i] = d.send(ctx, jobs[i])
			}()
		}
		wg.Wait()
		metrics.BatchDuration.Observe(time.Since(began).Seconds())

		d.Logger.Debug("batch dispatched",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(jobs)),
		)
	}
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, job Job) (out Outcome) {
	out.Job = job
	defer func() {
		if r := recover(); r != nil {
			out.Delivery = nil
			out.Failure = providerFailure(job, fmt.Errorf("panic: %v", r))
			metrics.EmailsTotal.WithLabelValues("failed").Inc()
		}
	}()

	receipt, err := d.Mailer.Send(ctx, mailer.Message{
		To:      job.To,
		Subject: job.Subject,
		HTML:    job.HTML,
		From:    job.From,
	})
	if err != nil {
		out.Failure = providerFailure(job, err)
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		d.Logger.Warn("send failed", zap.String("recipient", job.To), zap.Error(err))
		return out
	}

	sentAt := receipt.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	out.Delivery = &Delivery{MessageID: receipt.ID, SentAt: sentAt}
	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	return out
}

func providerFailure(job Job, err error) *Failure {
	perr := &appErrors.ProviderError{Recipient: job.To, Err: err}
	return &Failure{
		Code:    model.ErrorCodeProvider,
		Message: err.Error(),
		Err:     perr,
	}
}
