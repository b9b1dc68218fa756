// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/app"
	"github.com/unclebandit/dmvprep-mailer/internal/config"
	"github.com/unclebandit/dmvprep-mailer/internal/controller"
	"github.com/unclebandit/dmvprep-mailer/internal/handler"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/queue"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer a.Close()

	// In-process consumer; with RabbitMQ the worker's consume command can
	// take this over.
	if err := queue.StartTriggerSubscriber(a.Queue, a.TriggerTopic(), a.Router, logger); err != nil {
		log.Fatalf("failed to start trigger subscriber: %v", err)
	}

	campaignController := controller.NewCampaignController(a.Processor, a.Poller, a.Queue, cfg.CronSecret, logger)
	campaignController.Topic = a.TriggerTopic()
	campaignHandler := handler.NewCampaignHandler(a.Campaigns, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Campaign routes
	r.Post("/campaigns/dispatch", campaignController.Dispatch)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandlerWithStats)
	r.Get("/campaigns/{id}/sent-emails", campaignHandler.ListSentEmailsHandler)
	r.Post("/triggers", campaignController.Trigger)

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		logger.Info("🚀 Server running", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
