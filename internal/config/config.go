package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	ServiceName       string

	StoreDriver      string
	DatabaseURL      string
	DatabaseMaxConns int32
	MigrationsDir    string
	MongoURI         string
	MongoDatabase    string

	JWTSecret        string
	WSOriginPatterns []string
	// ReportRatePerMinute caps report and media submissions per caller; 0 disables it.
	ReportRatePerMinute int

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	DecayTau       time.Duration
	SOPCatalogPath string
	// SimulatorInterval is the fabricated report cadence; 0 disables the feed.
	SimulatorInterval time.Duration
	AlertInterval     time.Duration

	CAPSender     string
	PublicBaseURL string

	// TelegramBotToken enables public alert delivery for the telegram channel.
	TelegramBotToken string
	TelegramChatID   int64
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", "civicwatch"),
		StoreDriver:       getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", ""),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DATABASE", "civicwatch"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		WSOriginPatterns:  splitList(getEnv("WS_ORIGIN_PATTERNS", "")),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", "civicwatch-media"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3PublicURL:       getEnv("S3_PUBLIC_URL", ""),
		SOPCatalogPath:    getEnv("SOP_CATALOG_PATH", ""),
		CAPSender:         getEnv("CAP_SENDER", "alerts@civicwatch.local"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", ""),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	var err error
	if cfg.DecayTau, err = getDuration("DECAY_TAU", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SimulatorInterval, err = getDuration("SIMULATOR_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.AlertInterval, err = getDuration("ALERT_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	maxConns, err := strconv.ParseInt(getEnv("DATABASE_MAX_CONNS", "10"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_MAX_CONNS: %w", err)
	}
	cfg.DatabaseMaxConns = int32(maxConns)

	if v := getEnv("TELEGRAM_CHAT_ID", ""); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if cfg.ReportRatePerMinute, err = strconv.Atoi(getEnv("REPORT_RATE_PER_MINUTE", "30")); err != nil {
		return nil, fmt.Errorf("parse REPORT_RATE_PER_MINUTE: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the given binary depends on.
func (c *Config) Validate(binary string) error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be postgres, mongo or memory, got %q", c.StoreDriver))
	}

	if c.DecayTau <= 0 {
		errs = append(errs, errors.New("DECAY_TAU must be positive"))
	}
	if c.SimulatorInterval < 0 {
		errs = append(errs, errors.New("SIMULATOR_INTERVAL must not be negative"))
	}
	if c.ReportRatePerMinute < 0 {
		errs = append(errs, errors.New("REPORT_RATE_PER_MINUTE must not be negative"))
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN"))
	}

	if binary == "dashboard-api" {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required"))
		} else if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
		}
	}
	return errors.Join(errs...)
}

// MediaEnabled reports whether evidence uploads are configured.
func (c *Config) MediaEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
