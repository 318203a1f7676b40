package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/model"
)

// ExpiryStore is the part of the test store the sweep needs.
type ExpiryStore interface {
	ListOverdue(ctx context.Context, status model.TestStatus, now time.Time) ([]uuid.UUID, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.TestStatus) (bool, error)
}

// ExpiryWorker completes live tests whose window has ended. Start and submit
// already refuse expired windows on their own; the sweep only makes the
// stored status catch up so leaderboards open without waiting for a submit.
type ExpiryWorker struct {
	tests    ExpiryStore
	rdb      *redis.Client
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewExpiryWorker(tests ExpiryStore, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		tests:    tests,
		rdb:      rdb,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the sweep every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("ExpiryWorker disabled")
		return
	}
	w.log.Info().Dur("interval", w.interval).Msg("ExpiryWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Expiry sweep failed")
			}
		}
	}
}

// Sweep completes every overdue live test and returns how many it moved.
// Only one instance sweeps per interval; the others skip while the lock is held.
// When Redis errors every instance sweeps; the transitions are compare-and-swap.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	if w.rdb != nil {
		acquired, err := w.rdb.SetNX(ctx, config.WorkerKey.ExpirySweepLock, "1", w.lockTTL()).Result()
		switch {
		case err != nil:
			w.log.Warn().Err(err).Msg("Sweep lock unavailable, sweeping without it")
		case !acquired:
			return 0, nil
		}
	}

	ids, err := w.tests.ListOverdue(ctx, model.TestStatusLive, w.now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, id := range ids {
		moved, err := w.tests.TransitionStatus(ctx, id, model.TestStatusLive, model.TestStatusCompleted)
		if err != nil {
			w.log.Error().Err(err).Str("test_id", id.String()).Msg("Failed to complete expired test")
			continue
		}
		if moved {
			completed++
			w.log.Info().Str("test_id", id.String()).Msg("Expired test completed")
		}
	}
	return completed, nil
}

func (w *ExpiryWorker) lockTTL() time.Duration {
	if w.interval <= 0 {
		return time.Minute
	}
	return w.interval
}
