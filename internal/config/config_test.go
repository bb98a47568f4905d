package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "duel")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "duels")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("TASKS_CATALOG_URL", "http://taski:8080")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "duel-platform", cfg.Name)
	assert.Equal(t, 30, cfg.Duel.DefaultMaxDurationMinutes)
	assert.Equal(t, time.Second, cfg.Matchmaking.TickInterval)
	assert.Equal(t, 4, cfg.Duel.FinishParallelism)
	assert.Equal(t, 5*time.Minute, cfg.Tasks.CacheTTL)
	assert.Equal(t, "host=localhost port=5432 user=duel password=secret dbname=duels sslmode=disable", cfg.Postgres.DSN())

	engineCfg, err := cfg.Rating.EngineConfig()
	require.NoError(t, err)
	assert.Len(t, engineCfg.LevelBands, 5)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DUEL_DEFAULT_MAX_DURATION", "45")
	t.Setenv("DUEL_FINISH_SCAN_INTERVAL", "250ms")
	t.Setenv("RATING_LEVEL_BANDS", "0-1499:1,1500-9999:2")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Duel.DefaultMaxDurationMinutes)
	assert.Equal(t, 250*time.Millisecond, cfg.Duel.FinishScanInterval)

	engineCfg, err := cfg.Rating.EngineConfig()
	require.NoError(t, err)
	require.Len(t, engineCfg.LevelBands, 2)
	assert.Equal(t, 2, engineCfg.LevelBands[1].Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing required", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_SECRET", "")
		_, err := Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("bad level bands", func(t *testing.T) {
		setRequired(t)
		t.Setenv("RATING_LEVEL_BANDS", "high:1")
		_, err := Load(context.Background())
		assert.ErrorContains(t, err, "RATING_LEVEL_BANDS")
	})
}
