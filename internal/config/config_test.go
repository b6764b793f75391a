package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("GLOBAL_ADMIN_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.App.Env)
	require.False(t, cfg.App.IsProduction())
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, "admin@marketbook.com", cfg.Auth.BootstrapAdminEmail)
	require.Equal(t, 5, cfg.Auth.AdminMaxLoginAttempts)
	require.Equal(t, 2*time.Hour, cfg.Auth.AdminLockDuration())
	require.Equal(t, "@daily", cfg.Maintenance.Schedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("GLOBAL_ADMIN_EMAIL", "Root@Example.com")
	t.Setenv("GLOBAL_ADMIN_LOCK_MINUTES", "15")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.App.IsProduction())
	require.Equal(t, "127.0.0.1:9000", cfg.App.Addr())
	require.Equal(t, "root@example.com", cfg.Auth.BootstrapAdminEmail)
	require.Equal(t, 15*time.Minute, cfg.Auth.AdminLockDuration())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "first")

	_, err := Load()
	require.Error(t, err)
}
