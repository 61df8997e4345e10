package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/config"
	"github.com/marmos91/deskfs/pkg/events"
	"github.com/marmos91/deskfs/pkg/vfs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run housekeeping and the metrics endpoint until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rt, err := config.InitializeRuntime(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Warn("%v", err)
			}
		}()

		fmt.Println("deskfs - Virtual Desktop File System")
		logger.Info("Store: %s", cfg.Store.Type)
		logger.Info("Identity: %s (%s)", cfg.Identity.Username, cfg.Identity.Role)
		logger.Info("Sweeper: enabled=%v interval=%v retention=%v dry_run=%v",
			cfg.Sweeper.Enabled, cfg.Sweeper.Interval, cfg.Sweeper.TrashRetention, cfg.Sweeper.DryRun)

		sub := rt.Bus.Subscribe(events.Wildcard, logEvent)
		defer rt.Bus.Unsubscribe(sub)

		rt.Sweeper.Start()

		metricsDone := make(chan error, 1)
		if rt.Metrics.Server != nil {
			go func() {
				metricsDone <- rt.Metrics.Server.Start(ctx)
			}()
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		logger.Info("Running. Press Ctrl+C to stop.")

		var runErr error
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, initiating graceful shutdown...")
		case err := <-metricsDone:
			runErr = err
		}
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stop()

		if err := rt.Sweeper.Stop(shutdownCtx); err != nil {
			logger.Error("Sweeper shutdown error: %v", err)
		}
		if rt.Metrics.Server != nil {
			if err := rt.Metrics.Server.Stop(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown error: %v", err)
			}
		}

		if runErr != nil {
			return runErr
		}
		logger.Info("Stopped gracefully")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one housekeeping pass now",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		stats, err := rt.Sweeper.RunNow(ctx)
		if err != nil {
			return err
		}
		fmt.Println(stats.Summary())
		return nil
	}),
}

func logEvent(topic string, payload any) {
	switch ev := payload.(type) {
	case vfs.OperationEvent:
		if ev.OldPath != "" {
			logger.Info("%s %s: %s -> %s (%s)", topic, ev.Operation, ev.OldPath, ev.Path, ev.Actor)
			return
		}
		logger.Info("%s %s: %s (%s)", topic, ev.Operation, ev.Path, ev.Actor)
	case vfs.Share:
		logger.Info("%s %s -> %s (%s)", topic, ev.Path, ev.Recipient, ev.Level)
	case vfs.LockEvent:
		logger.Info("%s %s owner=%s expired=%v", topic, ev.Path, ev.Owner, ev.Expired)
	default:
		logger.Debug("%s %+v", topic, payload)
	}
}

func registerServeCommand() {
	rootCmd.AddCommand(serveCmd, sweepCmd)
}
