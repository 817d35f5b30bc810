package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/careops/platform/cmd/mainconfig"
	"github.com/careops/platform/internal/api/router"
	"github.com/careops/platform/internal/assist"
	"github.com/careops/platform/internal/auth"
	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
	appconfig "github.com/careops/platform/internal/config"
	"github.com/careops/platform/internal/contacts"
	"github.com/careops/platform/internal/exports"
	"github.com/careops/platform/internal/forms"
	"github.com/careops/platform/internal/inbox"
	"github.com/careops/platform/internal/inventory"
	"github.com/careops/platform/internal/notify"
	"github.com/careops/platform/internal/onboarding"
	"github.com/careops/platform/internal/reporting"
	"github.com/careops/platform/internal/scheduling"
	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting careops API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories: Postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		workspaceRepo workspace.Repository
		userRepo      auth.Repository
		contactRepo   contacts.Repository
		catalogRepo   catalog.Repository
		bookingRepo   scheduling.Repository
		inboxRepo     inbox.Repository
		formsRepo     forms.Repository
		inventoryRepo inventory.Repository
		eventStore    automation.Store
		logStore      automation.LogStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		outbox := automation.NewPostgresOutbox(pool)
		eventStore = outbox
		workspaceRepo = workspace.NewPostgresRepository(pool)
		userRepo = auth.NewPostgresRepository(pool)
		contactRepo = contacts.NewPostgresRepository(pool)
		catalogRepo = catalog.NewPostgresRepository(pool)
		bookingRepo = scheduling.NewPostgresRepository(pool, outbox)
		inboxRepo = inbox.NewPostgresRepository(pool)
		formsRepo = forms.NewPostgresRepository(pool)
		inventoryRepo = inventory.NewPostgresRepository(pool)
		logStore = automation.NewPostgresLogStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		memOutbox := automation.NewMemoryOutbox()
		eventStore = memOutbox
		workspaceRepo = workspace.NewInMemoryRepository()
		userRepo = auth.NewInMemoryRepository()
		contactRepo = contacts.NewInMemoryRepository()
		catalogRepo = catalog.NewInMemoryRepository()
		bookingRepo = scheduling.NewInMemoryRepository(memOutbox)
		inboxRepo = inbox.NewInMemoryRepository()
		formsRepo = forms.NewInMemoryRepository()
		inventoryRepo = inventory.NewInMemoryRepository()
		logStore = automation.NewInMemoryLogStore()
	}

	// Slot cache (optional).
	var slotCache *scheduling.SlotCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		slotCache = scheduling.NewSlotCache(redis.NewClient(opts), cfg.SlotCacheTTL, logger)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Platform email sender; workspace SMTP configs override per tenant.
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
	emailResolver := notify.NewResolver(platformEmail, logger)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry)
	inboxStream := inbox.NewStream(logger)
	schedulingService := scheduling.NewService(bookingRepo, catalogRepo, slotCache, logger)

	// In-process automation pipeline for single-node deployments. With SQS
	// configured the deliverer and worker run in the automation-worker binary
	// instead.
	if cfg.UseMemoryQueue {
		queue := automation.NewMemoryQueue(1024)
		engine := automation.NewEngine(inboxRepo, contactRepo, workspaceRepo, userRepo, emailResolver, logStore, logger)
		worker := automation.NewWorker(queue, engine, cfg.WorkerCount, logger)
		deliverer := automation.NewDeliverer(eventStore, queue, logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
		go worker.Start(ctx)
		go deliverer.Start(ctx)
		logger.Info("in-process automation worker started", "concurrency", cfg.WorkerCount)
	}

	if cfg.ReminderScanEnabled {
		scanner := scheduling.NewReminderScanner(bookingRepo, catalogRepo, eventStore, logger)
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					if n, err := scanner.Scan(ctx, now); err != nil {
						logger.Error("reminder scan failed", "error", err)
					} else if n > 0 {
						logger.Info("reminder scan complete", "published", n)
					}
				}
			}
		}()
	}

	// AI assistant (optional): Gemini primary, Bedrock fallback.
	var assistHandler *assist.Handler
	llm := buildLLM(ctx, cfg, awsCfg, logger)
	if llm != nil {
		var jobs assist.JobStore
		if cfg.UseMemoryQueue {
			jobs = assist.NewInMemoryJobStore()
		} else {
			jobs = assist.NewDynamoJobStore(dynamodb.NewFromConfig(awsCfg), cfg.AssistJobsTable, logger)
		}
		svc := assist.NewService(llm, inboxRepo, contactRepo, workspaceRepo, logger)
		assistHandler = assist.NewHandler(svc, jobs, logger)
	} else {
		logger.Warn("no LLM provider configured, assist endpoints disabled")
	}

	// CSV exports (optional, needs a bucket).
	var exportsHandler *exports.Handler
	if cfg.ExportBucket != "" {
		store := exports.NewStore(s3.NewFromConfig(awsCfg), cfg.ExportBucket, logger)
		exportsHandler = exports.NewHandler(exports.NewExporter(store, contactRepo, bookingRepo, logger), logger)
	}

	var dashboardHandler *reporting.DashboardHandler
	if cfg.DatabaseURL != "" {
		reportDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open reporting db", "error", err)
			os.Exit(1)
		}
		defer reportDB.Close()
		dashboardHandler = reporting.NewDashboardHandler(reportDB, logger)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		TokenIssuer:        issuer,
		Workspaces:         workspaceRepo,
		AuthHandler:        auth.NewHandler(userRepo, workspaceRepo, issuer, logger),
		WorkspaceHandler:   workspace.NewHandler(workspaceRepo, logger),
		ContactsHandler:    contacts.NewHandler(contactRepo, eventStore, logger),
		CatalogHandler:     catalog.NewHandler(catalogRepo, logger),
		SchedulingHandler:  scheduling.NewHandler(schedulingService, contactRepo, logger),
		InboxHandler:       inbox.NewHandler(inboxRepo, inboxStream, eventStore, logger),
		InboxStream:        inboxStream,
		FormsHandler:       forms.NewHandler(formsRepo, logger),
		InventoryHandler:   inventory.NewHandler(inventoryRepo, eventStore, logger),
		AutomationHandler:  automation.NewHandler(logStore, logger),
		AssistHandler:      assistHandler,
		DashboardHandler:   dashboardHandler,
		ExportsHandler:     exportsHandler,
		OnboardingHandler:  onboarding.NewHandler(nil, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PublicRateLimit:    cfg.PublicRatePerSec,
		PublicRateBurst:    cfg.PublicRateBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLM assembles the assistant's LLM client from whichever providers are
// configured: Gemini primary, Bedrock secondary, failover when both are set.
// Returns nil when neither is.
func buildLLM(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) assist.LLMClient {
	var gemini assist.LLMClient
	if cfg.GeminiAPIKey != "" {
		client, err := assist.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to init gemini client", "error", err)
		} else {
			gemini = client
		}
	}

	var bedrock assist.LLMClient
	if cfg.BedrockModelID != "" {
		bedrock = assist.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}

	switch {
	case gemini != nil && bedrock != nil:
		return assist.NewFailoverClient(gemini, "gemini", bedrock, "bedrock", logger)
	case gemini != nil:
		return gemini
	case bedrock != nil:
		return bedrock
	default:
		return nil
	}
}
