package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs Sync on a fixed period until its context ends.
type Worker struct {
	rec   *Reconciler
	every time.Duration
	log   *slog.Logger
}

func NewWorker(rec *Reconciler, every time.Duration, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{rec: rec, every: every, log: log}
}

// Run performs one sync immediately, then one per period.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	w.log.Info("sync worker started", "every", w.every)
	w.rec.Sync(ctx, false)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("sync worker stopped")
			return nil
		case <-ticker.C:
			w.rec.Sync(ctx, false)
		}
	}
}
