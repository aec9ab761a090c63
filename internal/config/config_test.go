package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":3500", cfg.ServerAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, time.Hour, cfg.AccessTokenExpiration)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenExpiration)
	assert.Equal(t, 10*time.Minute, cfg.AuthCodeExpiration)
	assert.True(t, cfg.EnableRefreshTokens)
	assert.Equal(t, StoreBackendDatabase, cfg.TokenStoreBackend)
	assert.Equal(t, StoreBackendMemory, cfg.CodeStoreBackend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRATION", "15m")
	t.Setenv("ENABLE_REFRESH_TOKENS", "false")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost user=auth dbname=auth")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiration)
	assert.False(t, cfg.EnableRefreshTokens)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.DatabaseDriver = "postgres"
	cfg.DatabaseDSN = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.TransactionCacheType = "redis"
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.IsProduction = true
	cfg.TokenPrivateKeyFile = ""
	assert.Error(t, cfg.Validate())
}
