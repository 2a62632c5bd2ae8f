package distribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardiavault-oss/Paradexx-sub007/services/vault/internal/storage"
)

// Reconciler re-publishes the executor hand-off for events that have not been
// confirmed or failed within the retry interval. A slow executor therefore
// cannot wedge the monitor: the vault stays distributing and the hand-off
// keeps being offered until the executor answers.
type Reconciler struct {
	store      Store
	trigger    *Trigger
	interval   time.Duration
	retryAfter time.Duration
	batchSize  int
	logger     *slog.Logger
	metrics    *Metrics
}

type Store interface {
	ListOpenDistributionEvents(ctx context.Context, olderThan time.Time, limit int) ([]storage.DistributionEvent, error)
	MarkHandoff(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

func NewReconciler(store Store, trigger *Trigger, interval, retryAfter time.Duration, batchSize int, logger *slog.Logger, metrics *Metrics) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reconciler{
		store:      store,
		trigger:    trigger,
		interval:   interval,
		retryAfter: retryAfter,
		batchSize:  batchSize,
		logger:     logger,
		metrics:    metrics,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

func (r *Reconciler) Reconcile(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.ReconcileRuns.Inc()
	}

	cutoff := time.Now().Add(-r.retryAfter)
	events, err := r.store.ListOpenDistributionEvents(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("reconcile list failed", "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.OpenEvents.Set(float64(len(events)))
	}

	for i := range events {
		event := events[i]
		if err := r.trigger.Handoff(ctx, &event); err != nil {
			continue
		}
		if err := r.store.MarkHandoff(ctx, event.ID, time.Now().UTC()); err != nil {
			r.logger.Error("mark handoff failed", "distribution_id", event.ID, "error", err)
		}
	}
}
