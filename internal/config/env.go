package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays environment variables on top of file values
func applyEnv(c *Config) {
	c.App.Environment = envOrDefault("APP_ENV", c.App.Environment)

	c.Logging.Level = envOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envOrDefault("LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = envOrDefault("LOG_OUTPUT", c.Logging.Output)
	c.Logging.NoColor = envBool("LOG_NO_COLOR", c.Logging.NoColor)

	c.Witness.PhotoAPI = envOrDefault("WITNESSCHAIN_PHOTO_API", c.Witness.PhotoAPI)
	c.Witness.BlockchainAPI = envOrDefault("WITNESSCHAIN_BLOCKCHAIN_API", c.Witness.BlockchainAPI)
	c.Witness.PrivateKey = envOrDefault("WITNESSCHAIN_PRIVATE_KEY", c.Witness.PrivateKey)
	c.Witness.PublicKey = envOrDefault("WITNESSCHAIN_PUBLIC_KEY", c.Witness.PublicKey)
	c.Witness.RequestTimeout = envDuration("WITNESSCHAIN_REQUEST_TIMEOUT", c.Witness.RequestTimeout)

	c.Campaign.Name = envOrDefault("CAMPAIGN_NAME", c.Campaign.Name)
	c.Campaign.Description = envOrDefault("CAMPAIGN_DESCRIPTION", c.Campaign.Description)
	c.Campaign.Tags = envCSV("CAMPAIGN_TAGS", c.Campaign.Tags)
	c.Campaign.Latitude = envFloat("CAMPAIGN_LATITUDE", c.Campaign.Latitude)
	c.Campaign.Longitude = envFloat("CAMPAIGN_LONGITUDE", c.Campaign.Longitude)
	c.Campaign.RadiusKm = envFloat("CAMPAIGN_RADIUS_KM", c.Campaign.RadiusKm)
	c.Campaign.Duration = envDuration("CAMPAIGN_DURATION", c.Campaign.Duration)

	c.Worker.PollInterval = envDuration("WORKER_POLL_INTERVAL", c.Worker.PollInterval)
	c.Worker.WorkDir = envOrDefault("WORKER_WORK_DIR", c.Worker.WorkDir)
	c.Worker.FlushDelay = envDuration("WORKER_FLUSH_DELAY", c.Worker.FlushDelay)
	c.Worker.ShutdownTimeout = envDuration("WORKER_SHUTDOWN_TIMEOUT", c.Worker.ShutdownTimeout)

	c.Retry.MaxAttempts = envInt("RETRY_MAX_ATTEMPTS", c.Retry.MaxAttempts)
	c.Retry.InitialBackoff = envDuration("RETRY_INITIAL_BACKOFF", c.Retry.InitialBackoff)
	c.Retry.MaxBackoff = envDuration("RETRY_MAX_BACKOFF", c.Retry.MaxBackoff)
	c.Retry.AttemptTimeout = envDuration("RETRY_ATTEMPT_TIMEOUT", c.Retry.AttemptTimeout)

	c.Dedup.Backend = envOrDefault("DEDUP_BACKEND", c.Dedup.Backend)
	c.Dedup.Capacity = envInt("DEDUP_CAPACITY", c.Dedup.Capacity)
	c.Dedup.TTL = envDuration("DEDUP_TTL", c.Dedup.TTL)

	c.Events.Backend = envOrDefault("EVENTS_BACKEND", c.Events.Backend)
	c.Metrics.Port = envInt("METRICS_PORT", c.Metrics.Port)
	c.Server.Port = envInt("SERVER_PORT", c.Server.Port)

	c.Database.Host = envOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = envInt("DB_PORT", c.Database.Port)
	c.Database.User = envOrDefault("DB_USER", c.Database.User)
	c.Database.Password = envOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Database = envOrDefault("DB_NAME", c.Database.Database)
	c.Database.SSLMode = envOrDefault("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.URL = envOrDefault("REDIS_URL", c.Redis.URL)

	c.RabbitMQ.Host = envOrDefault("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.RabbitMQ.Port = envInt("RABBITMQ_PORT", c.RabbitMQ.Port)
	c.RabbitMQ.User = envOrDefault("RABBITMQ_USER", c.RabbitMQ.User)
	c.RabbitMQ.Password = envOrDefault("RABBITMQ_PASSWORD", c.RabbitMQ.Password)

	c.NATS.URL = envOrDefault("NATS_URL", c.NATS.URL)
	c.NATS.Subject = envOrDefault("NATS_SUBJECT", c.NATS.Subject)
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or invalid values
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envDuration accepts Go duration strings like "5s" or "250ms"
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
