package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
	Notify    NotifyConfig
	Scheduler SchedulerConfig
	Par       ParConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// StoreBackend selects "sheets" or "memory"; the memory backend exists for
// local development and tests where no spreadsheet is reachable.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	StoreBackend    string
}

// MongoDBConfig holds settings for the rollover journal and archive mirror.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// NotifyConfig configures the outbound webhook used for requisition digests.
type NotifyConfig struct {
	WebhookURL string
	Channel    string
}

// SchedulerConfig holds cron-related settings.
type SchedulerConfig struct {
	DigestSchedule   string
	ReminderSchedule string
	Timezone         string
}

// ParConfig holds the fixed multipliers applied to mean consumption when
// suggesting reorder thresholds.
type ParConfig struct {
	FactorLow  decimal.Decimal
	FactorHigh decimal.Decimal
	Window     int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	factorLow, err := decimalEnv("PAR_FACTOR_LOW", "0.5")
	if err != nil {
		return nil, err
	}
	factorHigh, err := decimalEnv("PAR_FACTOR_HIGH", "1.5")
	if err != nil {
		return nil, err
	}
	window, err := intEnv("PAR_WINDOW_PERIODS", "3")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			StoreBackend:    getenvWithDefault("STORE_BACKEND", "sheets"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "stockroom"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Channel:    getenvWithDefault("NOTIFY_CHANNEL", "warehouse-ops"),
		},
		Scheduler: SchedulerConfig{
			DigestSchedule:   getenvWithDefault("FOLLOWUP_DIGEST_SCHEDULE", "0 9 * * *"),
			ReminderSchedule: getenvWithDefault("CLOSE_REMINDER_SCHEDULE", "0 17 28-31 * *"),
			Timezone:         getenvWithDefault("TIMEZONE", "Asia/Dubai"),
		},
		Par: ParConfig{
			FactorLow:  factorLow,
			FactorHigh: factorHigh,
			Window:     window,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Sheets.StoreBackend != "sheets" && c.Sheets.StoreBackend != "memory" {
		return fmt.Errorf("STORE_BACKEND must be sheets or memory, got %q", c.Sheets.StoreBackend)
	}

	if c.Sheets.StoreBackend == "sheets" {
		switch {
		case c.Sheets.CredentialsPath == "":
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		case c.Sheets.SpreadsheetID == "":
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Scheduler.DigestSchedule == "" {
		return errors.New("FOLLOWUP_DIGEST_SCHEDULE must be provided")
	}

	if c.Par.Window <= 0 {
		return errors.New("PAR_WINDOW_PERIODS must be positive")
	}

	if c.Par.FactorLow.IsNegative() || c.Par.FactorHigh.LessThan(c.Par.FactorLow) {
		return errors.New("par factors must satisfy 0 <= low <= high")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	raw := getenvWithDefault(key, fallback)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return value, nil
}

func intEnv(key, fallback string) (int, error) {
	raw := getenvWithDefault(key, fallback)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
