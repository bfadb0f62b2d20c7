package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ledgerinsight/internal/insight"
)

type Config struct {
	// HTTP Server
	Port            string        `toml:"port"`
	MetricsEnabled  bool          `toml:"metrics_enabled"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// Ledger source
	LedgerBackend  string `toml:"ledger_backend"`
	SQLiteDBPath   string `toml:"sqlite_db_path"`
	LedgerSeedFile string `toml:"ledger_seed_file"`

	// AMQP
	AMQPURL              string        `toml:"amqp_url"`
	AMQPExchange         string        `toml:"amqp_exchange"`
	AMQPQueue            string        `toml:"amqp_queue"`
	AMQPReportRoutingKey string        `toml:"amqp_report_routing_key"`
	ReportInterval       time.Duration `toml:"report_interval"`

	// Insight engine
	PeriodMode              string  `toml:"period_mode"`
	WeekStart               string  `toml:"week_start"`
	OutlierFactor           float64 `toml:"outlier_factor"`
	OutlierWindowDays       int     `toml:"outlier_window_days"`
	RecurringWindowDays     int     `toml:"recurring_window_days"`
	RecurringMinOccurrences int     `toml:"recurring_min_occurrences"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Load reads the configuration from the environment. When CONFIG_FILE is set
// the TOML file is applied on top of the defaults first, and environment
// variables still win over it.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit overlay file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:            "8081",
		MetricsEnabled:  true,
		ShutdownTimeout: 30 * time.Second,

		LedgerBackend: "memory",
		SQLiteDBPath:  "./data/ledger.db",

		AMQPExchange:         "ledger",
		AMQPQueue:            "ledger_changed",
		AMQPReportRoutingKey: "insight_report",

		PeriodMode:              string(insight.MonthMode),
		WeekStart:               string(insight.Monday),
		OutlierFactor:           insight.DefaultOutlierFactor,
		OutlierWindowDays:       insight.DefaultOutlierWindowDays,
		RecurringWindowDays:     insight.DefaultRecurringWindowDays,
		RecurringMinOccurrences: insight.DefaultRecurringMinOccurrences,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// MergeFile overlays the values present in a TOML file.
func (c *Config) MergeFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.LedgerBackend = getEnv("LEDGER_BACKEND", c.LedgerBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.LedgerSeedFile = getEnv("LEDGER_SEED_FILE", c.LedgerSeedFile)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	c.AMQPReportRoutingKey = getEnv("AMQP_REPORT_ROUTING_KEY", c.AMQPReportRoutingKey)
	c.ReportInterval = getEnvDuration("REPORT_INTERVAL", c.ReportInterval)

	c.PeriodMode = getEnv("PERIOD_MODE", c.PeriodMode)
	c.WeekStart = getEnv("WEEK_START", c.WeekStart)
	c.OutlierFactor = getEnvFloat("OUTLIER_FACTOR", c.OutlierFactor)
	c.OutlierWindowDays = getEnvInt("OUTLIER_WINDOW_DAYS", c.OutlierWindowDays)
	c.RecurringWindowDays = getEnvInt("RECURRING_WINDOW_DAYS", c.RecurringWindowDays)
	c.RecurringMinOccurrences = getEnvInt("RECURRING_MIN_OCCURRENCES", c.RecurringMinOccurrences)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate ledger backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.LedgerBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	if c.LedgerBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.LedgerSeedFile != "" {
		if _, err := os.Stat(c.LedgerSeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("ledger seed file does not exist: %s", c.LedgerSeedFile))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPReportRoutingKey == "" {
			errors = append(errors, "AMQP report routing key cannot be empty when AMQP URL is provided")
		}
	}
	if c.ReportInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must not be negative", c.ReportInterval))
	}

	// Validate insight settings
	if _, err := insight.ParsePeriodMode(c.PeriodMode); err != nil {
		errors = append(errors, fmt.Sprintf("invalid period mode '%s': must be 'month' or 'week'", c.PeriodMode))
	}
	if _, err := insight.ParseWeekStart(c.WeekStart); err != nil {
		errors = append(errors, fmt.Sprintf("invalid week start '%s': must be 'mon' or 'sun'", c.WeekStart))
	}
	if c.OutlierFactor <= 0 {
		errors = append(errors, fmt.Sprintf("invalid outlier factor %v: must be greater than 0", c.OutlierFactor))
	}
	if c.OutlierWindowDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid outlier window %d: must be at least 1 day", c.OutlierWindowDays))
	}
	if c.RecurringWindowDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid recurring window %d: must be at least 1 day", c.RecurringWindowDays))
	}
	if c.RecurringMinOccurrences < 2 {
		errors = append(errors, fmt.Sprintf("invalid recurring minimum occurrences %d: must be at least 2", c.RecurringMinOccurrences))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// InsightOptions maps the validated settings onto engine options.
func (c *Config) InsightOptions() insight.Options {
	mode, err := insight.ParsePeriodMode(c.PeriodMode)
	if err != nil {
		mode = insight.MonthMode
	}
	weekStart, err := insight.ParseWeekStart(c.WeekStart)
	if err != nil {
		weekStart = insight.Monday
	}
	return insight.Options{
		PeriodMode: mode,
		WeekStart:  weekStart,
		Recurring: insight.RecurringOptions{
			WindowDays:     c.RecurringWindowDays,
			MinOccurrences: c.RecurringMinOccurrences,
		},
		Outlier: insight.OutlierOptions{
			WindowDays: c.OutlierWindowDays,
			Factor:     c.OutlierFactor,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
