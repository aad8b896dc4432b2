package scheduler

import (
	"context"
	"time"

	"outreach_backend/platform/logger"
)

const defaultCycleInterval = 12 * time.Hour

type CycleEnqueuer interface {
	EnqueueCycle(ctx context.Context, trigger string) error
}

// CycleTicker queues a cadence cycle on start and then every interval.
type CycleTicker struct {
	queue    CycleEnqueuer
	log      *logger.Logger
	interval time.Duration
}

func NewCycleTicker(queue CycleEnqueuer, interval time.Duration, log *logger.Logger) *CycleTicker {
	if interval <= 0 {
		interval = defaultCycleInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CycleTicker{queue: queue, log: log, interval: interval}
}

func (t *CycleTicker) Run(ctx context.Context) {
	if t == nil || t.queue == nil {
		return
	}

	t.enqueue(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.enqueue(ctx)
		}
	}
}

func (t *CycleTicker) enqueue(ctx context.Context) {
	if err := t.queue.EnqueueCycle(ctx, "schedule"); err != nil {
		t.log.Warn("scheduled cycle enqueue failed", "error", err)
	}
}
