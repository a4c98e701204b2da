package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AngelCh415/lp-report/internal/models"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	SheetsAPIKey      string
	SpreadsheetID     string
	CostSpreadsheetID string
	SummarySheet      string
	CostSheet         string

	CacheBackend   string // memory | sqlite | redis
	CachePath      string
	RedisAddr      string
	CacheRetention time.Duration
	CacheTimeout   time.Duration

	RefreshSchedule string
	CORSOrigins     []string

	SinkURL    string
	SinkSecret string

	Assumptions models.Assumptions
}

// Load carga .env si existe y después lee el entorno.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	lvl := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		lvl = slog.LevelDebug
	}
	a := DefaultAssumptions()
	overrideRates(a.UnitPrices, os.Getenv("UNIT_PRICES"))
	overrideRates(a.EstRates, os.Getenv("EST_RATES"))
	if v, err := strconv.ParseFloat(os.Getenv("DIFF_RATE"), 64); err == nil {
		a.DiffRate = v
	}

	return Config{
		Port:              envOr("PORT", "8080"),
		HTTPTimeout:       seconds("HTTP_TIMEOUT_SECONDS", 15*time.Second),
		LogLevel:          lvl,
		SheetsAPIKey:      os.Getenv("GOOGLE_SHEETS_API_KEY"),
		SpreadsheetID:     os.Getenv("SPREADSHEET_ID"),
		CostSpreadsheetID: os.Getenv("COST_SPREADSHEET_ID"),
		SummarySheet:      envOr("SUMMARY_SHEET", "Summary_Report"),
		CostSheet:         envOr("COST_SHEET", "広告費まとめ_LP別"),
		CacheBackend:      strings.ToLower(envOr("CACHE_BACKEND", "sqlite")),
		CachePath:         envOr("CACHE_PATH", "data/cache.db"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		CacheRetention:    hours("CACHE_RETENTION_HOURS", 12*time.Hour),
		CacheTimeout:      millis("CACHE_TIMEOUT_MS", 3*time.Second),
		RefreshSchedule:   envOr("REFRESH_SCHEDULE", "@every 30m"),
		CORSOrigins:       list(envOr("CORS_ORIGINS", "*")),
		SinkURL:           os.Getenv("SINK_URL"),
		SinkSecret:        os.Getenv("SINK_SECRET"),
		Assumptions:       a,
	}
}

// DefaultAssumptions son los valores de arranque de la tabla de supuestos.
func DefaultAssumptions() models.Assumptions {
	return models.Assumptions{
		UnitPrices: map[models.Merchant]float64{
			models.Acom:    85000,
			models.Promise: 62000,
			models.Mobit:   16000,
			models.Aiful:   50161,
		},
		EstRates: map[models.Merchant]float64{
			models.Acom:    20,
			models.Promise: 20,
			models.Mobit:   20,
			models.Aiful:   20,
		},
		FallbackPrice:   models.DefaultUnitPrice,
		FallbackEstRate: models.DefaultEstRate,
	}
}

// ParseRates lee "acom=85000,promise=62000".
func ParseRates(s string) (map[models.Merchant]float64, error) {
	out := map[models.Merchant]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("bad rate %q: want merchant=value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("bad rate %q: %w", part, err)
		}
		out[models.ParseMerchant(k)] = f
	}
	return out, nil
}

func overrideRates(dst map[models.Merchant]float64, raw string) {
	m, err := ParseRates(raw)
	if err != nil {
		slog.Warn("ignoring rate override", slog.String("value", raw), slog.String("err", err.Error()))
		return
	}
	for k, v := range m {
		dst[k] = v
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func seconds(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return def
}

func hours(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "h"); err == nil {
			return d
		}
	}
	return def
}

func millis(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v + "ms"); err == nil {
			return d
		}
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
