package app_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/app"
	_ "github.com/orgmanage/orgmanage/internal/testing/guard"
)

func TestGuardEnablesTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-session-secret")
	t.Setenv("CSRF_SECRET", "test-csrf-secret")
	t.Setenv("SERVICE_TOKEN_SECRET", "test-service-secret")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "development", cfg.AppEnv)
	require.False(t, cfg.IsProduction())
	require.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	require.Positive(t, cfg.RealtimeBuffer)
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "x")
	t.Setenv("SERVICE_TOKEN_SECRET", "x")

	_, err := app.LoadConfig()
	require.Error(t, err)
}
