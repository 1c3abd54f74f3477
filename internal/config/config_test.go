package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("WEBHOOK_SECRET", "hook")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, "دلار", cfg.DefaultAsset)
	assert.Equal(t, []string{"امامی", "نیم", "ربع", "تمام"}, cfg.CoinAssets)
	assert.Empty(t, cfg.KafkaBrokers)

	pc := cfg.Parser()
	assert.Equal(t, 'و', pc.InMarker)
	assert.Equal(t, 'خ', pc.OutMarker)
	assert.Equal(t, "تا", pc.UnitsKeyword)
	assert.Equal(t, "عدد", pc.PiecesKeyword)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("COIN_ASSETS", "gold,silver")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"gold", "silver"}, cfg.CoinAssets)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without url", env: map[string]string{"STORE_DRIVER": "postgres"}},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "bolt"}},
		{name: "multi-character marker", env: map[string]string{"MARKER_IN": "in"}},
		{name: "identical markers", env: map[string]string{"MARKER_IN": "x", "MARKER_OUT": "x"}},
		{name: "non-positive lock timeout", env: map[string]string{"LOCK_TIMEOUT": "0s"}},
		{name: "sub-millisecond lock timeout", env: map[string]string{"LOCK_TIMEOUT": "500us"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadGrammar_NeedsNoSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("WEBHOOK_SECRET", "")
	t.Setenv("DEFAULT_ASSET", "یورو")

	g, err := LoadGrammar()
	require.NoError(t, err)
	assert.Equal(t, "یورو", g.Parser().DefaultAsset)

	t.Setenv("MARKER_OUT", "و")
	_, err = LoadGrammar()
	require.Error(t, err)
}
