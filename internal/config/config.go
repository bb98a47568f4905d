package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"duel-platform"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Matchmaking Matchmaking
	Duel        Duel
	Rating      Rating
	Tasks       Tasks
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN returns a libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache, lock and pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for verifying access tokens.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"duel-platform"`
}

// Matchmaking tunes the pairing loop.
type Matchmaking struct {
	TickInterval time.Duration `env:"MATCHMAKING_TICK_INTERVAL" envDefault:"1s"`
}

// Duel groups lifecycle defaults and the finish watcher.
type Duel struct {
	DefaultMaxDurationMinutes int           `env:"DUEL_DEFAULT_MAX_DURATION" envDefault:"30"`
	FinishScanInterval        time.Duration `env:"DUEL_FINISH_SCAN_INTERVAL" envDefault:"1s"`
	FinishBatchSize           int           `env:"DUEL_FINISH_BATCH_SIZE" envDefault:"100"`
	FinishParallelism         int           `env:"DUEL_FINISH_PARALLELISM" envDefault:"4"`
	LockTTL                   time.Duration `env:"DUEL_LOCK_TTL" envDefault:"30s"`
}

// Rating configures the rating-to-task-level mapping used for default
// configurations, e.g. "0-1199:1,1200-1499:2". Empty keeps the built-in bands.
type Rating struct {
	LevelBands string `env:"RATING_LEVEL_BANDS" envDefault:""`
}

// EngineConfig returns the rating engine configuration with any level bands
// overridden from the environment.
func (r Rating) EngineConfig() (rating.Config, error) {
	cfg := rating.DefaultConfig()
	if r.LevelBands == "" {
		return cfg, nil
	}
	bands, err := rating.ParseLevelBands(r.LevelBands)
	if err != nil {
		return rating.Config{}, fmt.Errorf("RATING_LEVEL_BANDS: %w", err)
	}
	cfg.LevelBands = bands
	return cfg, nil
}

// Tasks configures the task service client.
type Tasks struct {
	CatalogURL string        `env:"TASKS_CATALOG_URL,notEmpty"`
	Timeout    time.Duration `env:"TASKS_HTTP_TIMEOUT" envDefault:"5s"`
	CacheTTL   time.Duration `env:"TASKS_CACHE_TTL" envDefault:"5m"`
}

// Leaderboard governs snapshotting and broadcast behavior.
type Leaderboard struct {
	TopN             int           `env:"LEADERBOARD_TOP_N" envDefault:"50"`
	SnapshotInterval time.Duration `env:"LEADERBOARD_SNAPSHOT_INTERVAL" envDefault:"5m"`
	SnapshotTopN     int           `env:"LEADERBOARD_SNAPSHOT_TOP" envDefault:"100"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.Rating.EngineConfig(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
