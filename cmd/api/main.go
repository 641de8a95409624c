package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/susubox-payments-backend/internal/api"
	"github.com/susubox-payments-backend/internal/api/handler"
	"github.com/susubox-payments-backend/internal/config"
	"github.com/susubox-payments-backend/internal/data/mongo"
	"github.com/susubox-payments-backend/internal/data/postgres"
	"github.com/susubox-payments-backend/internal/logger"
	"github.com/susubox-payments-backend/internal/notification"
	"github.com/susubox-payments-backend/internal/outbox"
	"github.com/susubox-payments-backend/internal/platform/messaging/producers"
	"github.com/susubox-payments-backend/internal/platform/persistence"
	"github.com/susubox-payments-backend/internal/platform/provider"
	"github.com/susubox-payments-backend/internal/reconciliation"
	"github.com/susubox-payments-backend/internal/scheduler"
	"github.com/susubox-payments-backend/internal/settlement"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("payments")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers (ledger events plus the outbox DLQ)
	ledgerProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	jarRepo := postgres.NewJarRepository(log, postgresDB)
	settingsRepo := postgres.NewSettingsRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	deviceTokenRepo := postgres.NewDeviceTokenRepository(log, postgresDB)
	auditRepo := mongo.NewWebhookAuditRepository(log, mongoDB.Database())

	// Initialize payment providers
	registry := provider.NewRegistry()
	paystack := provider.NewPaystack(log, &cfg.Providers.Paystack)
	registry.Register(provider.PaystackName, paystack, paystack)
	eganow := provider.NewEganow(log, &cfg.Providers.Eganow)
	registry.Register(provider.EganowName, eganow, eganow)

	// Initialize push messaging
	var messenger notification.Messenger = notification.NoopMessenger{}
	if cfg.Notifications.Enabled {
		fcm, err := notification.NewFCMClient(appCtx, log, cfg.Notifications.CredentialsFile, deviceTokenRepo)
		if err != nil {
			log.Error("Failed to initialize FCM client", "error", err)
			os.Exit(1)
		}
		messenger = fcm
	}
	notifier := notification.NewCreatorNotifier(log, jarRepo, deviceTokenRepo, messenger)

	// Initialize outbox recorder and poller
	recorder := outbox.NewRecorder(log, outboxRepo)
	outboxPoller := outbox.NewPoller(&cfg.Outbox, outboxRepo, ledgerProducer, dlqProducer, log)
	go outboxPoller.Start(appCtx)

	// Initialize worker pool for the verification sweep
	workerPool, err := ants.NewPool(cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize reconciliation services
	resolver := reconciliation.NewResolver(log, transactionRepo, recorder, notifier)
	chargeInitiator := reconciliation.NewChargeInitiator(log, transactionRepo, jarRepo, settingsRepo, registry, recorder)
	webhookReconciler := reconciliation.NewWebhookReconciler(log, &cfg.Payout, transactionRepo, registry, auditRepo, resolver)
	pollingReconciler := reconciliation.NewPollingReconciler(log, &cfg.Verify, workerPool, transactionRepo, registry, resolver)

	// Initialize settlement services
	jarLocks := settlement.NewJarLocks()
	settlementScheduler := settlement.NewScheduler(log, &cfg.Settlement, transactionRepo, settingsRepo, recorder, notifier)
	payoutOrchestrator := settlement.NewPayoutOrchestrator(log, transactionRepo, jarRepo, settingsRepo, registry, jarLocks, recorder, notifier)
	reminderSweeper := settlement.NewReminderSweeper(log, &cfg.Reminders, jarRepo, transactionRepo, settingsRepo, notifier)

	// Start background sweeps
	runner := scheduler.NewRunner(log,
		scheduler.Job{
			Name:     "settlement_sweep",
			Interval: cfg.Settlement.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := settlementScheduler.Sweep(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "verify_sweep",
			Interval: cfg.Verify.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := pollingReconciler.Sweep(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "reminder_sweep",
			Interval: cfg.Reminders.SweepInterval,
			Run:      reminderSweeper.Sweep,
		},
	)
	runner.Start(appCtx)

	// Initialize REST server
	transactionHandler := handler.NewTransactionHandler(log, chargeInitiator, pollingReconciler, transactionRepo)
	webhookHandler := handler.NewWebhookHandler(log, webhookReconciler)
	payoutHandler := handler.NewPayoutHandler(log, payoutOrchestrator)
	jarHandler := handler.NewJarHandler(log, jarRepo, transactionRepo)

	server := api.NewServer(log, cfg, transactionHandler, webhookHandler, payoutHandler, jarHandler)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context; sweeps and the outbox poller stop here
	cancelAppCtx()
	runner.Wait()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new work arrives
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	workerPool.Release()

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = ledgerProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
