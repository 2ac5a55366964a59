package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_LISTEN_ADDR", "METRICS_LISTEN_ADDR", "LOG_LEVEL", "SERVICE_NAME", "STORE_DRIVER",
		"DATABASE_URL", "DATABASE_MAX_CONNS", "MONGO_URI", "MONGO_DATABASE", "JWT_SECRET",
		"WS_ORIGIN_PATTERNS", "S3_ENDPOINT", "S3_BUCKET", "DECAY_TAU", "SIMULATOR_INTERVAL",
		"ALERT_INTERVAL", "REPORT_RATE_PER_MINUTE", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "civicwatch", cfg.ServiceName)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, int32(10), cfg.DatabaseMaxConns)
	assert.Equal(t, "civicwatch", cfg.MongoDatabase)
	assert.Equal(t, 6*time.Hour, cfg.DecayTau)
	assert.Zero(t, cfg.SimulatorInterval)
	assert.Equal(t, 5*time.Minute, cfg.AlertInterval)
	assert.Equal(t, 30, cfg.ReportRatePerMinute)
	assert.Nil(t, cfg.WSOriginPatterns)
	assert.False(t, cfg.MediaEnabled())
}

func TestLoad_AllEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_LISTEN_ADDR", ":7071")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("MONGO_DATABASE", "triage")
	t.Setenv("DATABASE_MAX_CONNS", "25")
	t.Setenv("WS_ORIGIN_PATTERNS", "dash.example.com, *.example.org ,")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("DECAY_TAU", "90m")
	t.Setenv("SIMULATOR_INTERVAL", "30s")
	t.Setenv("REPORT_RATE_PER_MINUTE", "0")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234567890")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7071", cfg.HTTPListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "triage", cfg.MongoDatabase)
	assert.Equal(t, int32(25), cfg.DatabaseMaxConns)
	assert.Equal(t, []string{"dash.example.com", "*.example.org"}, cfg.WSOriginPatterns)
	assert.Equal(t, 90*time.Minute, cfg.DecayTau)
	assert.Equal(t, 30*time.Second, cfg.SimulatorInterval)
	assert.Zero(t, cfg.ReportRatePerMinute)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, int64(-1001234567890), cfg.TelegramChatID)
	assert.True(t, cfg.MediaEnabled())
}

func TestLoad_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("DECAY_TAU", "six hours")

	_, err := Load()
	assert.ErrorContains(t, err, "DECAY_TAU")
}

func TestLoad_BadMaxConns(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_MAX_CONNS", "lots")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_MAX_CONNS")
}

func TestLoad_BadTelegramChat(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "@alerts")

	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_CHAT_ID")
}

func TestValidate(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	tests := []struct {
		name    string
		cfg     Config
		binary  string
		wantErr string
	}{
		{"postgres ok", Config{StoreDriver: DriverPostgres, DatabaseURL: "postgres://x", DecayTau: time.Hour, JWTSecret: secret}, "dashboard-api", ""},
		{"postgres missing url", Config{StoreDriver: DriverPostgres, DecayTau: time.Hour}, "dashctl", "DATABASE_URL"},
		{"mongo missing uri", Config{StoreDriver: DriverMongo, DecayTau: time.Hour}, "dashctl", "MONGO_URI"},
		{"memory ok for cli", Config{StoreDriver: DriverMemory, DecayTau: time.Hour}, "dashctl", ""},
		{"unknown driver", Config{StoreDriver: "sqlite", DecayTau: time.Hour}, "dashctl", "STORE_DRIVER"},
		{"api needs secret", Config{StoreDriver: DriverMemory, DecayTau: time.Hour}, "dashboard-api", "JWT_SECRET is required"},
		{"short secret", Config{StoreDriver: DriverMemory, DecayTau: time.Hour, JWTSecret: "short"}, "dashboard-api", "at least 32 bytes"},
		{"zero tau", Config{StoreDriver: DriverMemory}, "dashctl", "DECAY_TAU"},
		{"negative rate", Config{StoreDriver: DriverMemory, DecayTau: time.Hour, ReportRatePerMinute: -1}, "dashctl", "REPORT_RATE_PER_MINUTE"},
		{"telegram without chat", Config{StoreDriver: DriverMemory, DecayTau: time.Hour, TelegramBotToken: "123:abc"}, "dashctl", "TELEGRAM_CHAT_ID"},
		{"negative simulator", Config{StoreDriver: DriverMemory, DecayTau: time.Hour, SimulatorInterval: -time.Second}, "dashctl", "SIMULATOR_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.binary)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
