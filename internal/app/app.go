package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/auth/jwt"
	"github.com/gokatarajesh/duel-platform/internal/config"
	"github.com/gokatarajesh/duel-platform/internal/db/pgstore"
	"github.com/gokatarajesh/duel-platform/internal/db/repository"
	"github.com/gokatarajesh/duel-platform/internal/duel"
	"github.com/gokatarajesh/duel-platform/internal/duel/queue"
	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
	"github.com/gokatarajesh/duel-platform/internal/leaderboard"
	"github.com/gokatarajesh/duel-platform/internal/logging"
	"github.com/gokatarajesh/duel-platform/internal/metrics"
	"github.com/gokatarajesh/duel-platform/internal/notify"
	"github.com/gokatarajesh/duel-platform/internal/server"
	"github.com/gokatarajesh/duel-platform/internal/task"
	ws "github.com/gokatarajesh/duel-platform/pkg/http/ws"
)

// worker is a background loop owned by the application.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	leaderboard *leaderboard.Service
	queries     *pgstore.Queries
	workers     []worker
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis, the duel engine and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	engineCfg, err := cfg.Rating.EngineConfig()
	if err != nil {
		pool.Close()
		return nil, err
	}

	db := pgstore.NewDB(pool)
	duelRepo := repository.NewDuelRepository(db)
	collector := metrics.New(prometheus.DefaultRegisterer)

	// Task catalog: HTTP client behind a Redis read-through cache.
	taskClient := task.NewClient(cfg.Tasks.CatalogURL, &http.Client{Timeout: cfg.Tasks.Timeout})
	taskCache := task.NewCache(redisClient, taskClient, cfg.Tasks.CacheTTL, logger)

	lifecycle := duel.NewLifecycle(
		taskCache,
		task.NewSelector(nil),
		rating.NewEngine(engineCfg),
		duel.SystemClock{},
		logger,
	)

	leaderboardSvc := leaderboard.NewService(redisClient, duelRepo, logger, leaderboard.ServiceOptions{
		TopN:             cfg.Leaderboard.TopN,
		SnapshotTopLimit: cfg.Leaderboard.SnapshotTopN,
	})

	waiting := queue.NewPool(logger)
	duelSvc := duel.NewService(duelRepo, waiting, lifecycle, duel.ServiceOptions{
		DefaultMaxDurationMinutes: cfg.Duel.DefaultMaxDurationMinutes,
		Notifier:                  notify.NewPublisher(redisClient, notify.DefaultChannel),
		Recorder:                  leaderboardSvc,
		Locker:                    duel.NewRedisLocker(redisClient, cfg.Duel.LockTTL, logger),
		Metrics:                   collector,
	}, logger)

	wsHub := ws.NewHub(logger)
	tokens := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(cfg.Security.JWTSecret),
		Issuer:       cfg.Security.JWTIssuer,
	})

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Pool:   pool,
		Redis:  redisClient,
		Tokens: tokens,
		Socket: server.NewDuelSocket(wsHub, server.NewUpgrader(cfg.CORS), logger),
		Routes: []server.Routes{
			duel.NewHTTPHandlers(duelSvc, logger),
			leaderboard.NewHTTPHandler(leaderboardSvc, db.Queries, logger),
		},
	})

	matchmaking := duel.NewMatchmakingWorker(waiting, duelSvc, collector, cfg.Matchmaking.TickInterval, logger)
	finishWatcher := duel.NewFinishWatcher(duelRepo, duelSvc, collector, duel.FinishWatcherOptions{
		Interval:    cfg.Duel.FinishScanInterval,
		BatchSize:   cfg.Duel.FinishBatchSize,
		Parallelism: cfg.Duel.FinishParallelism,
	}, logger)
	duelEvents := notify.NewBroadcaster(redisClient, wsHub, notify.DefaultChannel, logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, "", logger)

	workers := []worker{
		{name: "matchmaking", run: matchmaking.Run},
		{name: "finish watcher", run: finishWatcher.Run},
		{name: "duel event broadcaster", run: duelEvents.Run},
		{name: "leaderboard broadcaster", run: lbBroadcaster.Run},
	}
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker := leaderboard.NewSnapshotWorker(leaderboardSvc, db.Queries, interval, logger)
		workers = append(workers, worker{name: "leaderboard snapshot", run: snapshotWorker.Run})
	}

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		leaderboard: leaderboardSvc,
		queries:     db.Queries,
		workers:     workers,
		bgCancels:   make([]context.CancelFunc, 0, len(workers)),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.warmLeaderboard(ctx)
	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

// warmLeaderboard seeds the Redis ranking from Postgres so a fresh cache
// serves full results before the first rating change.
func (a *Application) warmLeaderboard(ctx context.Context) {
	users, err := a.queries.ListTopUsersByRating(ctx, int32(a.cfg.Leaderboard.SnapshotTopN))
	if err != nil {
		a.logger.Warn().Err(err).Msg("leaderboard warm-up query failed")
		return
	}
	entries := make([]leaderboard.Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, leaderboard.Entry{UserID: u.ID, Nickname: u.Nickname, Rating: int(u.Rating)})
	}
	if err := a.leaderboard.Warm(ctx, entries); err != nil {
		a.logger.Warn().Err(err).Msg("leaderboard warm-up failed")
		return
	}
	a.logger.Info().Int("users", len(entries)).Msg("leaderboard warmed")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	for _, w := range a.workers {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func(w worker) {
			if err := w.run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Str("worker", w.name).Msg("background worker stopped")
			}
		}(w)
	}
}
