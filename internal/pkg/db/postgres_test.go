package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamification-bot/internal/config"
)

func TestApplyPoolSettings(t *testing.T) {
	cfg := &config.DatabaseConfig{User: "u", Password: "p", Host: "localhost", Port: 5432, Name: "xp", PoolSize: 12, ConnectTimeout: 3 * time.Second}
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)

	applyPoolSettings(pc, cfg)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, pc.MaxConnIdleTime)
}

func TestApplyPoolSettings_SmallPool(t *testing.T) {
	cfg := &config.DatabaseConfig{User: "u", Host: "localhost", Port: 5432, Name: "xp", PoolSize: 2}
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)

	applyPoolSettings(pc, cfg)
	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 10*time.Second, pc.ConnConfig.ConnectTimeout)
}
