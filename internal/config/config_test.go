package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/lp-report/internal/models"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "HTTP_TIMEOUT_SECONDS", "CACHE_BACKEND", "SUMMARY_SHEET", "COST_SHEET",
		"UNIT_PRICES", "EST_RATES", "DIFF_RATE", "CACHE_RETENTION_HOURS", "CACHE_TIMEOUT_MS", "CORS_ORIGINS", "REFRESH_SCHEDULE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, "Summary_Report", cfg.SummarySheet)
	assert.Equal(t, "広告費まとめ_LP別", cfg.CostSheet)
	assert.Equal(t, 12*time.Hour, cfg.CacheRetention)
	assert.Equal(t, 3*time.Second, cfg.CacheTimeout)
	assert.Equal(t, "@every 30m", cfg.RefreshSchedule)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 85000.0, cfg.Assumptions.PriceFor(models.Acom))
	assert.Equal(t, 50161.0, cfg.Assumptions.PriceFor(models.Aiful))
	assert.Equal(t, 50000.0, cfg.Assumptions.PriceFor("unknown"))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "4")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("UNIT_PRICES", "acom=90000, newco=1000")
	t.Setenv("EST_RATES", "mobit=35")
	t.Setenv("DIFF_RATE", "-10")
	t.Setenv("CACHE_TIMEOUT_MS", "250")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := FromEnv()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, 90000.0, cfg.Assumptions.PriceFor(models.Acom))
	assert.Equal(t, 62000.0, cfg.Assumptions.PriceFor(models.Promise))
	assert.Equal(t, 1000.0, cfg.Assumptions.PriceFor("newco"))
	assert.Equal(t, 35.0, cfg.Assumptions.EstRateFor(models.Mobit))
	assert.Equal(t, -10.0, cfg.Assumptions.DiffRate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestParseRates(t *testing.T) {
	m, err := ParseRates(" ACOM = 1 ,promise=2.5,")
	require.NoError(t, err)
	assert.Equal(t, map[models.Merchant]float64{models.Acom: 1, models.Promise: 2.5}, m)

	_, err = ParseRates("acom")
	assert.Error(t, err)
	_, err = ParseRates("acom=lots")
	assert.Error(t, err)
}

func TestBadOverrideKeepsDefaults(t *testing.T) {
	t.Setenv("UNIT_PRICES", "acom=oops")
	cfg := FromEnv()
	assert.Equal(t, 85000.0, cfg.Assumptions.PriceFor(models.Acom))
}
