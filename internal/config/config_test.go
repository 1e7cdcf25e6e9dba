package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "sqlite://./chessica.db", cfg.Database.URL)
	assert.Equal(t, 1320, cfg.Engine.MinElo)
	assert.Equal(t, 2850, cfg.Engine.MaxElo)
	assert.Equal(t, 3, cfg.Engine.DefaultDepth)
	assert.Equal(t, 60, cfg.Session.CacheTTLSec)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: "9090"}, Engine: EngineConfig{MinElo: 900}}
	cfg.applyDefaults()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 900, cfg.Engine.MinElo)
}

func TestEnvOverridesWinOverFileValues(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENGINE_MIN_ELO", "1500")
	t.Setenv("AUTH_FEATURE_ENABLED", "true")

	cfg := &Config{Server: ServerConfig{Port: "8080"}}
	cfg.applyEnvOverrides()

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowOrigins)
	assert.Equal(t, 1500, cfg.Engine.MinElo)
	assert.True(t, cfg.Auth.FeatureEnabled)
}

func TestGetEnvIntIgnoresUnparsable(t *testing.T) {
	t.Setenv("SOME_INT_KEY", "not-a-number")
	assert.Equal(t, 7, getEnvInt("SOME_INT_KEY", 7))
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a ,, b "))
}

func TestIsProductionReadsEnv(t *testing.T) {
	t.Setenv("CHESSICA_ENV", "production")
	cfg := &Config{}
	assert.True(t, cfg.IsProduction())
	os.Unsetenv("CHESSICA_ENV")
	assert.False(t, cfg.IsProduction())
}
