package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"credit-circuit/banking"

	"github.com/shopspring/decimal"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP       HTTPConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Simulation SimulationConfig
}

// HTTPConfig governs the report server.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig points at the report database. An empty URL keeps reports
// in memory.
type DatabaseConfig struct {
	URL string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

// SimulationConfig sizes and seeds the run.
type SimulationConfig struct {
	Seed       int64
	Periods    int
	Firms      int
	Households int
	Banks      []string
	Params     banking.Params
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 5 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultSeed            = 42
	defaultPeriods         = 120
	defaultFirms           = 10
	defaultHouseholds      = 100
	defaultBanks           = "bank-1"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            valueOrDefault("SERVER_ADDR", defaultAddr),
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
		},
		Simulation: SimulationConfig{
			Banks:  splitList(valueOrDefault("SIM_BANKS", defaultBanks)),
			Params: banking.DefaultParams(),
		},
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.HTTP.ShutdownTimeout = d
	}

	seed, err := parseInt64("SIM_SEED", defaultSeed)
	if err != nil {
		return Config{}, err
	}
	cfg.Simulation.Seed = seed

	sizes := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"SIM_PERIODS", defaultPeriods, &cfg.Simulation.Periods},
		{"SIM_FIRMS", defaultFirms, &cfg.Simulation.Firms},
		{"SIM_HOUSEHOLDS", defaultHouseholds, &cfg.Simulation.Households},
	}
	for _, s := range sizes {
		n, err := parseCount(s.key, s.fallback)
		if err != nil {
			return Config{}, err
		}
		*s.dst = n
	}
	if len(cfg.Simulation.Banks) == 0 {
		return Config{}, fmt.Errorf("SIM_BANKS names no bank")
	}

	if err := loadParams(&cfg.Simulation.Params); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadParams overrides the bank parameters that are set in the environment.
func loadParams(p *banking.Params) error {
	rates := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"BANK_NORMAL_RATE", &p.NormalRate},
		{"BANK_PENALTY_RATE", &p.PenaltyRate},
		{"BANK_CAPITAL_RATIO", &p.CapitalRatio},
		{"BANK_PROPENSITY_TO_DISTRIBUTE", &p.PropensityToDistribute},
	}
	for _, r := range rates {
		v := os.Getenv(r.key)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", r.key, v, err)
		}
		*r.dst = d
	}

	terms := []struct {
		key string
		dst *int
	}{
		{"BANK_EXTENDED_TERM", &p.ExtendedTerm},
		{"BANK_PATIENCE", &p.Patience},
		{"BANK_SHORT_TERM_HORIZON", &p.ShortTermHorizon},
	}
	for _, term := range terms {
		v := os.Getenv(term.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", term.key, v, err)
		}
		*term.dst = n
	}
	return p.Validate()
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

func parseCount(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
