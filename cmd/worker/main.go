package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/app"
	"github.com/unclebandit/dmvprep-mailer/internal/config"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/queue"
)

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "Background processing for email campaigns",
	}
	root.AddCommand(consumeCmd(), pollCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run loads configuration, wires the application and calls fn with a
// context cancelled on SIGINT/SIGTERM.
func run(fn func(ctx context.Context, a *app.Application) error) error {
	cfg := config.Load()
	logger := logging.New(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Consume trigger events and run matching campaigns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.Application) error {
				if err := queue.StartTriggerSubscriber(a.Queue, a.TriggerTopic(), a.Router, a.Logger); err != nil {
					return err
				}
				a.Logger.Info("Worker running, waiting for trigger events...", zap.String("topic", a.TriggerTopic()))
				<-ctx.Done()
				return nil
			})
		},
	}
}

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Sweep due scheduled campaigns on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.Application) error {
				a.Logger.Info("poller running", zap.Duration("interval", a.Poller.Interval))
				stop := a.Poller.Start(ctx)
				<-ctx.Done()
				stop()
				return nil
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep of due scheduled campaigns and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.Application) error {
				summary, err := a.Poller.Sweep(ctx)
				if summary != nil {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					_ = enc.Encode(summary)
				}
				return err
			})
		},
	}
}
