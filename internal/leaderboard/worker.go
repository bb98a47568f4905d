package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/db/pgstore"
)

type snapshotWriter interface {
	InsertLeaderboardSnapshot(ctx context.Context, arg pgstore.InsertLeaderboardSnapshotParams) (int64, error)
}

// SnapshotWorker periodically persists the Redis leaderboard into Postgres.
type SnapshotWorker struct {
	svc      *Service
	store    snapshotWriter
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewSnapshotWorker(svc *Service, store snapshotWriter, interval time.Duration, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotWorker{
		svc:      svc,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.store == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	if err := w.snapshot(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("snapshot failed")
	}
}

// snapshot stores the current top entries. Identical consecutive snapshots
// collapse on their content hash.
func (w *SnapshotWorker) snapshot(ctx context.Context) error {
	entries, err := w.svc.SnapshotTop(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	wsEntries := toWSEntries(entries)
	data, err := json.Marshal(wsEntries)
	if err != nil {
		return err
	}

	sourceHash := sha256.Sum256(data)
	now := w.now()

	inserted, err := w.store.InsertLeaderboardSnapshot(ctx, pgstore.InsertLeaderboardSnapshotParams{
		GeneratedAt: pgtype.Timestamptz{Time: now, Valid: true},
		Entries:     data,
		SourceHash:  hex.EncodeToString(sourceHash[:]),
	})
	if err != nil {
		return err
	}
	if inserted == 0 {
		w.logger.Debug().Msg("leaderboard unchanged, snapshot skipped")
		return nil
	}

	w.logger.Info().
		Int("entries", len(wsEntries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")

	return nil
}
