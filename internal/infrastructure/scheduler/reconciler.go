// Package scheduler runs the periodic schedule reconciliation pass.
// Recompute failures after a return are swallowed by design; this pass
// finds the resulting drift and heals it, so a transient failure never
// leaves a schedule permanently stale.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/infrastructure/config"
)

// DriftFinder locates transactions whose stored schedule no longer
// matches their items
type DriftFinder interface {
	FindScheduleDrift(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Recomputer regenerates one transaction's schedule
type Recomputer interface {
	RecomputeSchedule(ctx context.Context, transactionID uuid.UUID) error
}

// Reconciler periodically recomputes drifted schedules
type Reconciler struct {
	finder     DriftFinder
	recomputer Recomputer
	interval   time.Duration
	batch      int
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a Reconciler from scheduler configuration
func NewReconciler(finder DriftFinder, recomputer Recomputer, cfg config.SchedulerConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		finder:     finder,
		recomputer: recomputer,
		interval:   cfg.ReconcileInterval,
		batch:      cfg.ReconcileBatch,
		logger:     logger,
	}
}

// Start launches the reconciliation loop. It runs until Stop is called.
func (r *Reconciler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("schedule reconciliation started",
			zap.Duration("interval", r.interval),
			zap.Int("batch", r.batch))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runOnce(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight pass to finish
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.logger.Info("schedule reconciliation stopped")
}

// RunOnce performs a single reconciliation pass. Exposed so operators can
// trigger it out of band.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.runOnce(ctx)
}

func (r *Reconciler) runOnce(ctx context.Context) {
	ids, err := r.finder.FindScheduleDrift(ctx, r.batch)
	if err != nil {
		r.logger.Error("drift scan failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	r.logger.Info("drifted schedules found", zap.Int("count", len(ids)))
	healed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := r.recomputer.RecomputeSchedule(ctx, id); err != nil {
			r.logger.Error("drift recompute failed",
				zap.String("transaction_id", id.String()),
				zap.Error(err))
			continue
		}
		healed++
	}
	r.logger.Info("reconciliation pass finished",
		zap.Int("healed", healed),
		zap.Int("failed", len(ids)-healed))
}
