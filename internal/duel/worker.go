package duel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/duel-platform/internal/duel/queue"
	"github.com/gokatarajesh/duel-platform/internal/metrics"
)

// MatchmakingWorker periodically drains the waiting pool into duels.
type MatchmakingWorker struct {
	pool     *queue.Pool
	svc      *Service
	metrics  *metrics.Collector
	interval time.Duration
	logger   zerolog.Logger
}

func NewMatchmakingWorker(pool *queue.Pool, svc *Service, m *metrics.Collector, interval time.Duration, logger zerolog.Logger) *MatchmakingWorker {
	if interval <= 0 {
		interval = time.Second
	}
	return &MatchmakingWorker{
		pool:     pool,
		svc:      svc,
		metrics:  m,
		interval: interval,
		logger:   logger.With().Str("component", "matchmaking_worker").Logger(),
	}
}

// Run blocks until context cancellation.
func (w *MatchmakingWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick pairs users until the pool has no pair left or ctx is done.
// Members of a pair whose duel failed to start go back to the pool once the
// drain is over, so the same pair is retried on the next Tick at the earliest.
// It returns the number of duels created.
func (w *MatchmakingWorker) Tick(ctx context.Context) int {
	created := 0
	var failed []queue.Pair
	for ctx.Err() == nil {
		pair, ok := w.pool.TryGetPair()
		if !ok {
			break
		}

		if _, err := w.svc.CreateDuel(ctx, pair); err != nil {
			w.logger.Error().Err(err).
				Int64("user1_id", pair.User1.UserID).
				Int64("user2_id", pair.User2.UserID).
				Bool("task_selection", errors.Is(err, ErrTaskSelectionFailed)).
				Msg("failed to create duel for pair")
			failed = append(failed, pair)
			continue
		}
		created++
	}

	for _, pair := range failed {
		for _, entry := range []queue.WaitingEntry{pair.User1, pair.User2} {
			if err := w.svc.Requeue(ctx, entry); err != nil {
				w.logger.Warn().Err(err).Int64("user_id", entry.UserID).Msg("user dropped from pool")
			}
		}
	}

	w.metrics.SetWaitingUsers(w.pool.Count())
	return created
}

// FinishWatcher periodically checks InProgress duels for a finish condition.
type FinishWatcher struct {
	store       Store
	svc         *Service
	metrics     *metrics.Collector
	interval    time.Duration
	batchSize   int
	parallelism int
	logger      zerolog.Logger
}

// FinishWatcherOptions tunes a FinishWatcher.
type FinishWatcherOptions struct {
	Interval    time.Duration // default: 1s
	BatchSize   int           // default: 100
	Parallelism int           // default: 4
}

func NewFinishWatcher(store Store, svc *Service, m *metrics.Collector, opts FinishWatcherOptions, logger zerolog.Logger) *FinishWatcher {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &FinishWatcher{
		store:       store,
		svc:         svc,
		metrics:     m,
		interval:    opts.Interval,
		batchSize:   opts.BatchSize,
		parallelism: opts.Parallelism,
		logger:      logger.With().Str("component", "finish_watcher").Logger(),
	}
}

// Run blocks until context cancellation.
func (w *FinishWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick evaluates every InProgress duel, BatchSize at a time. A failing duel
// is logged and skipped; it never stops evaluation of the others.
func (w *FinishWatcher) Tick(ctx context.Context) {
	var afterID int64
	total := 0
	for ctx.Err() == nil {
		duels, err := w.store.ListInProgressDuels(ctx, afterID, w.batchSize)
		if err != nil {
			w.logger.Warn().Err(err).Int64("after_id", afterID).Msg("list in-progress duels failed")
			return
		}
		total += len(duels)
		w.checkBatch(ctx, duels)

		if len(duels) < w.batchSize {
			break
		}
		afterID = duels[len(duels)-1].ID
	}
	w.metrics.SetActiveDuels(total)
}

func (w *FinishWatcher) checkBatch(ctx context.Context, duels []*Duel) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)

	for _, d := range duels {
		if gctx.Err() != nil {
			break
		}
		duelID := d.ID
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := w.svc.CheckDuel(gctx, duelID); err != nil {
				if errors.Is(err, ErrLockHeld) {
					w.logger.Debug().Int64("duel_id", duelID).Msg("duel busy, skipped")
					return nil
				}
				w.metrics.FinishScanError()
				w.logger.Warn().Err(err).Int64("duel_id", duelID).Msg("finish check failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
