package automation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careops/platform/internal/observability/metrics"
	"github.com/careops/platform/pkg/logging"
)

// Deliverer polls the outbox and pushes serialized envelopes onto the queue.
type Deliverer struct {
	store     Store
	queue     Queue
	logger    *logging.Logger
	batchSize int32
	interval  time.Duration
}

// NewDeliverer creates a deliverer with default batch size and poll interval.
func NewDeliverer(store Store, queue Queue, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:     store,
		queue:     queue,
		logger:    logger,
		batchSize: 25,
		interval:  2 * time.Second,
	}
}

// WithBatchSize overrides the fetch batch size.
func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

// WithInterval overrides the poll interval.
func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// Start polls until the context is cancelled.
func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.queue == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain runs one fetch-send-mark cycle. Exported so tests and single-shot
// tools can pump the outbox without the ticker.
func (d *Deliverer) Drain(ctx context.Context) {
	entries, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, entry := range entries {
		body, err := json.Marshal(entry)
		if err != nil {
			d.logger.Error("outbox marshal failed", "error", err, "event_id", entry.ID)
			continue
		}
		if err := d.queue.Send(ctx, string(body)); err != nil {
			d.logger.Error("outbox delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type)
			continue
		}
		if ok, err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
		} else if ok {
			metrics.OutboxDelivered.Inc()
			d.logger.Debug("outbox delivered", "event_id", entry.ID, "type", entry.Type)
		}
	}
}
