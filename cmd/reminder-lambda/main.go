// Reminder lambda: invoked on an EventBridge schedule, publishes a
// booking.reminder event for each of tomorrow's confirmed bookings. The
// automation worker turns the events into emails and log rows, so invoking
// the lambda twice in a day produces no duplicate sends beyond what the
// engine's log already guards.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/platform/internal/automation"
	"github.com/careops/platform/internal/catalog"
	appconfig "github.com/careops/platform/internal/config"
	"github.com/careops/platform/internal/scheduling"
	"github.com/careops/platform/pkg/logging"
)

type scanResult struct {
	Published int    `json:"published"`
	Date      string `json:"date"`
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		panic("DATABASE_URL is required")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		panic(fmt.Sprintf("connect postgres: %v", err))
	}

	outbox := automation.NewPostgresOutbox(pool)
	scanner := scheduling.NewReminderScanner(
		scheduling.NewPostgresRepository(pool, outbox),
		catalog.NewPostgresRepository(pool),
		outbox,
		logger,
	)

	lambda.Start(func(ctx context.Context) (scanResult, error) {
		now := time.Now().UTC()
		n, err := scanner.Scan(ctx, now)
		if err != nil {
			logger.Error("reminder scan failed", "error", err)
			return scanResult{}, err
		}
		logger.Info("reminder scan complete", "published", n)
		return scanResult{
			Published: n,
			Date:      scheduling.Tomorrow(now, time.UTC),
		}, nil
	})
}
