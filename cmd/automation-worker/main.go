package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/careops/platform/cmd/mainconfig"
	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/automation"
	appconfig "github.com/careops/platform/internal/config"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/notify"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.AutomationQueueURL == "" {
		logger.Error("AUTOMATION_QUEUE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var platformEmail notify.EmailSender
	switch {
	case cfg.SendGridAPIKey != "" && cfg.EmailProvider != "ses":
		platformEmail = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case cfg.SESFromEmail != "":
		platformEmail = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	default:
		logger.Warn("no platform email provider configured, emails will be logged only")
		platformEmail = notify.NewStubEmailSender(logger)
	}

	outbox := automation.NewPostgresOutbox(pool)
	queue := automation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AutomationQueueURL)
	engine := automation.NewEngine(
		inbox.NewPostgresRepository(pool),
		contacts.NewPostgresRepository(pool),
		workspace.NewPostgresRepository(pool),
		auth.NewPostgresRepository(pool),
		notify.NewResolver(platformEmail, logger),
		automation.NewPostgresLogStore(pool),
		logger,
	)
	worker := automation.NewWorker(queue, engine, cfg.WorkerCount, logger)
	deliverer := automation.NewDeliverer(outbox, queue, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)

	logger.Info("automation worker starting",
		"concurrency", cfg.WorkerCount,
		"queue", cfg.AutomationQueueURL,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		deliverer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down automation worker...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("automation worker stopped")
	case <-time.After(30 * time.Second):
		logger.Error("automation worker shutdown timed out")
	}
}
