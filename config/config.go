// Package config loads server configuration from a YAML file with
// environment-variable fallbacks.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PayeeConfig is the account detail block shown to tenants reporting a
// manual payment.
type PayeeConfig struct {
	AccountName   string `yaml:"account_name"`
	AccountNumber string `yaml:"account_number"`
	BankName      string `yaml:"bank_name"`
	Instructions  string `yaml:"instructions"`
}

// Config defines server configuration. LockTimeout comes from the
// environment only; YAML has no native duration syntax.
type Config struct {
	Port           int           `yaml:"port"`
	DatabasePath   string        `yaml:"database_path"`
	LockTimeout    time.Duration `yaml:"-"`
	LogLevel       string        `yaml:"log_level"`
	Payee          PayeeConfig   `yaml:"payee"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SeedDemoData   bool          `yaml:"seed_demo_data"`
}

// Load reads configuration from RENT_LEDGER_CONFIG (when set) over
// env-var and built-in defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:         getenvIntDefault("RENT_LEDGER_PORT", 8080),
		DatabasePath: getenvDefault("RENT_LEDGER_DB", "rent-ledger.db"),
		LockTimeout:  getenvDurationDefault("RENT_LEDGER_LOCK_TIMEOUT", 5*time.Second),
		LogLevel:     getenvDefault("RENT_LEDGER_LOG_LEVEL", "info"),
		SeedDemoData: getenvBoolDefault("RENT_LEDGER_SEED_DEMO", false),
	}

	if path := os.Getenv("RENT_LEDGER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return cfg, errors.New("config: port out of range")
	}
	if cfg.DatabasePath == "" {
		return cfg, errors.New("config: database path required")
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
