package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable applyEnv reads so the host environment
// cannot leak into assertions
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "LOG_NO_COLOR",
		"WITNESSCHAIN_PHOTO_API", "WITNESSCHAIN_BLOCKCHAIN_API", "WITNESSCHAIN_PRIVATE_KEY",
		"WITNESSCHAIN_PUBLIC_KEY", "WITNESSCHAIN_REQUEST_TIMEOUT",
		"CAMPAIGN_NAME", "CAMPAIGN_DESCRIPTION", "CAMPAIGN_TAGS", "CAMPAIGN_LATITUDE",
		"CAMPAIGN_LONGITUDE", "CAMPAIGN_RADIUS_KM", "CAMPAIGN_DURATION",
		"WORKER_POLL_INTERVAL", "WORKER_WORK_DIR", "WORKER_FLUSH_DELAY", "WORKER_SHUTDOWN_TIMEOUT",
		"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_BACKOFF", "RETRY_MAX_BACKOFF", "RETRY_ATTEMPT_TIMEOUT",
		"DEDUP_BACKEND", "DEDUP_CAPACITY", "DEDUP_TTL", "EVENTS_BACKEND", "METRICS_PORT", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "REDIS_URL",
		"RABBITMQ_HOST", "RABBITMQ_PORT", "RABBITMQ_USER", "RABBITMQ_PASSWORD", "NATS_URL", "NATS_SUBJECT",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, "https://photos.example.test/api", cfg.Witness.PhotoAPI)
			assert.Equal(t, 20*time.Second, cfg.Witness.RequestTimeout)
			assert.Equal(t, "Test Campaign", cfg.Campaign.Name)
			assert.Equal(t, []string{"paris", "test"}, cfg.Campaign.Tags)
			assert.Equal(t, 48*time.Hour, cfg.Campaign.Duration)
			assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
			assert.Equal(t, 250*time.Millisecond, cfg.Worker.FlushDelay)
			assert.Equal(t, 4, cfg.Retry.MaxAttempts)
			assert.Equal(t, 1000, cfg.Dedup.Capacity)
			assert.Equal(t, "geophoto", cfg.Database.Database)

			// untouched sections keep defaults
			assert.Equal(t, "POINTS", cfg.Campaign.Currency)
			assert.Equal(t, 2, cfg.Campaign.MaxSubmissions)
			assert.Equal(t, "photos.decisions", cfg.NATS.Subject)
		})
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "TreeHacks 2025 - EigenLayer", cfg.Campaign.Name)
	assert.Equal(t, 37.441023, cfg.Campaign.Latitude)
	assert.Equal(t, -122.12686, cfg.Campaign.Longitude)
	assert.Equal(t, 100.0, cfg.Campaign.RadiusKm)
	assert.Equal(t, 10*24*time.Hour, cfg.Campaign.Duration)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, time.Second, cfg.Worker.FlushDelay)
	assert.Equal(t, DedupMemory, cfg.Dedup.Backend)
	assert.Equal(t, EventsNone, cfg.Events.Backend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WITNESSCHAIN_PHOTO_API", "https://env.example.test")
	t.Setenv("WITNESSCHAIN_PRIVATE_KEY", "0xfeed")
	t.Setenv("WORKER_POLL_INTERVAL", "750ms")
	t.Setenv("CAMPAIGN_TAGS", "a, b,,c")
	t.Setenv("CAMPAIGN_LATITUDE", "not-a-number")
	t.Setenv("RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("DEDUP_BACKEND", "redis")
	t.Setenv("LOG_NO_COLOR", "true")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.test", cfg.Witness.PhotoAPI)
	assert.Equal(t, "0xfeed", cfg.Witness.PrivateKey)
	assert.Equal(t, 750*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Campaign.Tags)
	assert.Equal(t, 48.8566, cfg.Campaign.Latitude, "invalid float keeps file value")
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, DedupRedis, cfg.Dedup.Backend)
	assert.True(t, cfg.Logging.NoColor)
}

func validWorkerConfig() *Config {
	cfg := Default()
	cfg.Witness.PhotoAPI = "https://photos.example.test"
	cfg.Witness.PrivateKey = "0xabc"
	return cfg
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:      "missing photo api",
			mutate:    func(c *Config) { c.Witness.PhotoAPI = "" },
			errString: "witness photo_api is required",
		},
		{
			name:      "missing private key",
			mutate:    func(c *Config) { c.Witness.PrivateKey = "" },
			errString: "witness private_key is required",
		},
		{
			name:      "latitude out of range",
			mutate:    func(c *Config) { c.Campaign.Latitude = 91 },
			errString: "invalid campaign latitude",
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Worker.PollInterval = 0 },
			errString: "worker poll_interval must be greater than 0",
		},
		{
			name:      "zero attempts",
			mutate:    func(c *Config) { c.Retry.MaxAttempts = 0 },
			errString: "retry max_attempts must be greater than 0",
		},
		{
			name:      "unknown dedup backend",
			mutate:    func(c *Config) { c.Dedup.Backend = "etcd" },
			errString: `unknown dedup backend: "etcd"`,
		},
		{
			name: "postgres dedup needs database name",
			mutate: func(c *Config) {
				c.Dedup.Backend = DedupPostgres
				c.Database.Database = ""
			},
			errString: "database name is required",
		},
		{
			name: "redis dedup needs url",
			mutate: func(c *Config) {
				c.Dedup.Backend = DedupRedis
				c.Redis.URL = ""
			},
			errString: "redis url is required",
		},
		{
			name: "rabbitmq events need exchange",
			mutate: func(c *Config) {
				c.Events.Backend = EventsRabbitMQ
				c.RabbitMQ.Exchange.Name = ""
			},
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "unknown events backend",
			mutate:    func(c *Config) { c.Events.Backend = "kafka" },
			errString: `unknown events backend: "kafka"`,
		},
		{
			name:      "metrics port out of range",
			mutate:    func(c *Config) { c.Metrics.Port = 70000 },
			errString: "invalid metrics port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validWorkerConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateWorkerConfig_ReportsAllProblems(t *testing.T) {
	cfg := validWorkerConfig()
	cfg.Witness.PhotoAPI = ""
	cfg.Worker.WorkDir = ""

	err := cfg.ValidateWorkerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "witness photo_api is required")
	assert.Contains(t, err.Error(), "worker work_dir is required")
}

func TestLoad_ValidateAPIIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestCampaignConfig_Spec(t *testing.T) {
	spec := Default().Campaign.Spec()

	assert.Equal(t, "TreeHacks 2025 - EigenLayer", spec.Name)
	assert.Equal(t, "individual", spec.Type)
	assert.Equal(t, 1.0, spec.FuelRequired)
	assert.Equal(t, 10*24*time.Hour, spec.Duration)
}
