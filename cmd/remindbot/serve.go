package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"remindbot/internal/channels/discord"
	"remindbot/internal/config"
	"remindbot/internal/jobstore"
	"remindbot/internal/logger"
	"remindbot/internal/reminder"
	"remindbot/internal/timeparse"
	"remindbot/internal/workers"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start RemindBot (main command)",
	Long: `Start RemindBot with the specified configuration.
This will initialize all components (logger, job store, scheduler, worker
pool, Discord connector) and handle graceful shutdown.

The serve command is the main entry point for running RemindBot.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	if err := config.LoadEnvOptional("./.env"); err != nil {
		fmt.Printf("❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	configPath := serveConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Info("🚀 Starting RemindBot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "store", Value: cfg.Store.Path},
		logger.Field{Key: "poll_interval_seconds", Value: cfg.Store.PollIntervalSeconds},
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Metrics listener
	var poolMetrics *workers.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		poolMetrics = workers.InitMetrics("remindbot", nil)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}

		go func() {
			log.Info("📊 Metrics listener started",
				logger.Field{Key: "addr", Value: cfg.Metrics.ListenAddr})
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics listener failed", err)
			}
		}()
	}

	// Open the job store
	registry := jobstore.NewRegistry(log)
	store, err := registry.Open(cfg.Store.Path)
	if err != nil {
		log.Error("Failed to open job store", err,
			logger.Field{Key: "path", Value: cfg.Store.Path})
		os.Exit(1)
	}

	// Start the worker pool
	pool := workers.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize, log, poolMetrics)
	if err := pool.Start(ctx); err != nil {
		log.Error("Failed to start worker pool", err)
		os.Exit(1)
	}

	// Reminder domain
	parser := timeparse.New(time.Local)
	manager := reminder.NewManager(store, parser, log)

	// Discord connector
	log.Info("💬 Initializing Discord connector")
	connector := discord.New(cfg.Discord, log, manager)
	if err := connector.Start(ctx); err != nil {
		log.Error("Failed to start Discord connector", err)
		os.Exit(1)
	}

	// Delivery pipeline: scheduler fires due jobs into the pool, the delivery
	// worker renders and sends them over the live session.
	deliveryWorker := reminder.NewDeliveryWorker(store, connector.NewSender(), log)

	scheduler := jobstore.NewScheduler(store, log, pool, jobstore.SchedulerOptions{
		PollInterval:    time.Duration(cfg.Store.PollIntervalSeconds) * time.Second,
		FailedRetention: time.Duration(cfg.Store.FailedRetentionDays) * 24 * time.Hour,
	})
	scheduler.Define(reminder.KindReminder, deliveryWorker.HandleJob)
	if err := scheduler.Start(ctx); err != nil {
		log.Error("Failed to start scheduler", err)
		os.Exit(1)
	}

	log.Info("✅ RemindBot is running")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("⏳ Received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()})

	// Graceful shutdown: stop firing new jobs, drain the pool while the
	// session is still open, then close everything else.
	log.Info("🛑 Shutting down RemindBot...")

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", err)
	}

	pool.Stop()

	if err := connector.Stop(); err != nil {
		log.Error("Failed to stop Discord connector", err)
	}

	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop metrics listener", err)
		}
		shutdownCancel()
	}

	if err := registry.CloseAll(); err != nil {
		log.Error("Failed to close job store", err)
		os.Exit(1)
	}

	log.Info("👋 RemindBot stopped gracefully")
	os.Exit(0)
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
