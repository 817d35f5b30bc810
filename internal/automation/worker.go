package automation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/careops/platform/pkg/logging"
)

// Worker consumes the queue and feeds the engine. Messages whose handling
// returns an error stay on the queue for redelivery.
type Worker struct {
	queue  Queue
	engine *Engine
	logger *logging.Logger

	concurrency int
	waitSeconds int
	retryDelay  time.Duration
}

// NewWorker creates a worker pool over the queue.
func NewWorker(queue Queue, engine *Engine, concurrency int, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Worker{
		queue:       queue,
		engine:      engine,
		logger:      logger,
		concurrency: concurrency,
		waitSeconds: 5,
		retryDelay:  5 * time.Second,
	}
}

// Start runs the consumer loops until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		messages, err := w.queue.Receive(ctx, 10, w.waitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue receive failed", "error", err)
			// Wait before polling again so a broken queue does not spin the
			// loop hot.
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryDelay):
			}
			continue
		}
		for _, msg := range messages {
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg QueueMessage) {
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Body), &env); err != nil {
		// Malformed bodies can never succeed; drop them.
		w.logger.Error("dropping malformed queue message", "error", err, "message_id", msg.ID)
		if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			w.logger.Error("failed to delete queue message", "error", err, "message_id", msg.ID)
		}
		return
	}

	if err := w.engine.Handle(ctx, env); err != nil {
		w.logger.Error("event handling failed, leaving for redelivery",
			"error", err, "event_id", env.ID, "type", env.Type)
		return
	}
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete queue message", "error", err, "message_id", msg.ID)
	}
}
