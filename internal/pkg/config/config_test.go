package config_test

import (
	"testing"

	"github.com/manzaspots/manza/internal/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("manza-test")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 5.0, cfg.Search.DefaultRadiusKm)
	assert.Equal(t, "45 14 * * *", cfg.Sweep.Cron)
	assert.Equal(t, "manza-test", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MANZA_SERVER_PORT", "9090")
	t.Setenv("MANZA_STORE_BACKEND", "postgres")
	t.Setenv("MANZA_DATABASE_HOST", "db")
	t.Setenv("MANZA_SEARCH_DEFAULT_RADIUS_KM", "2.5")

	cfg, err := config.Load("manza-test")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, config.BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 2.5, cfg.Search.DefaultRadiusKm)
	assert.Equal(t, "postgres://manza:@db:5432/manza?sslmode=disable", cfg.Database.DSN())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Store:  config.StoreConfig{Backend: "sqlite"},
		Search: config.SearchConfig{DefaultRadiusKm: 0},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "store.backend", "nats.url", "search.default_radius_km", "sweep.max_age_hours"} {
		assert.Contains(t, err.Error(), want)
	}
}
