// Package app wires the delivery pipeline from configuration. Both the
// HTTP server and the worker build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/config"
	"github.com/unclebandit/dmvprep-mailer/internal/db"
	"github.com/unclebandit/dmvprep-mailer/internal/lock"
	"github.com/unclebandit/dmvprep-mailer/internal/mailer"
	"github.com/unclebandit/dmvprep-mailer/internal/queue"
	"github.com/unclebandit/dmvprep-mailer/internal/repository"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

// Application holds the wired components and the resources to release.
type Application struct {
	Config config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Queue  queue.Queue

	Campaigns *service.CampaignService
	Processor *service.CampaignProcessor
	Router    *service.TriggerRouter
	Poller    *service.SchedulePoller

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Application, error) {
	a := &Application{Config: cfg, Logger: logger}

	database, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)

	m, err := mailer.New(cfg.Mail, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, closeLock, err := initializeLock(ctx, cfg.Redis, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeLock)

	q, err := initializeQueue(cfg.AMQP, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = q
	a.closers = append(a.closers, q.Close)

	campaignRepo := &repository.CampaignRepository{DB: database}
	userRepo := &repository.UserRepository{DB: database}
	sentEmailRepo := &repository.SentEmailRepository{DB: database}

	renderer := service.NewTemplateRenderer()
	renderer.Register(service.UsersNamespace, service.NewUsersSource(userRepo))

	a.Processor = service.NewCampaignProcessor(
		campaignRepo,
		service.NewRecipientResolver(userRepo),
		renderer,
		service.NewDispatcher(m, cfg.Dispatch.BatchSize, cfg.Dispatch.BatchDelay, logger),
		service.NewLedger(sentEmailRepo, logger),
		service.StatusPolicy{DeactivateOnPartialFailure: cfg.Dispatch.DeactivateOnPartialFailure},
		logger,
	)
	a.Processor.DefaultFrom = cfg.Mail.DefaultFrom
	a.Router = service.NewTriggerRouter(campaignRepo, a.Processor, logger)

	a.Poller = service.NewSchedulePoller(campaignRepo, a.Processor, locker, logger)
	if cfg.Poller.Concurrency > 0 {
		a.Poller.Concurrency = cfg.Poller.Concurrency
	}
	if cfg.Poller.Interval > 0 {
		a.Poller.Interval = cfg.Poller.Interval
	}
	if cfg.Poller.LockTTL > 0 {
		a.Poller.LockTTL = cfg.Poller.LockTTL
	}

	a.Campaigns = &service.CampaignService{CampaignRepo: campaignRepo, SentEmailRepo: sentEmailRepo}
	return a, nil
}

// TriggerTopic is the configured event bus topic for trigger events.
func (a *Application) TriggerTopic() string {
	if a.Config.AMQP.Queue == "" {
		return queue.TriggerTopic
	}
	return a.Config.AMQP.Queue
}

// Close releases resources in reverse order of acquisition.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func initializeQueue(cfg config.AMQPConfig, logger *zap.Logger) (queue.Queue, error) {
	if cfg.URL == "" {
		logger.Info("AMQP_URL not set, using in-memory event bus")
		return queue.NewInMemoryQueue(logger), nil
	}
	q, err := queue.NewAMQPQueue(cfg.URL, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("✅ Connected to RabbitMQ")
	return q, nil
}

func initializeLock(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (lock.Locker, func() error, error) {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, sweeps are not locked across replicas")
		return lock.Noop{}, func() error { return nil }, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("✅ Connected to redis", zap.String("addr", cfg.Addr))
	return lock.NewRedis(rc), rc.Close, nil
}
