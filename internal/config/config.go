package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Dedup backends
const (
	DedupMemory   = "memory"
	DedupRedis    = "redis"
	DedupPostgres = "postgres"
)

// Event backends
const (
	EventsNone     = "none"
	EventsRabbitMQ = "rabbitmq"
	EventsNATS     = "nats"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Witness  WitnessConfig  `yaml:"witness"`
	Campaign CampaignConfig `yaml:"campaign"`
	Worker   WorkerConfig   `yaml:"worker"`
	Retry    RetryConfig    `yaml:"retry"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	NATS     NATSConfig     `yaml:"nats"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// WitnessConfig holds the photo service endpoints and credentials
type WitnessConfig struct {
	PhotoAPI       string        `yaml:"photo_api"`
	BlockchainAPI  string        `yaml:"blockchain_api"`
	PrivateKey     string        `yaml:"private_key"`
	PublicKey      string        `yaml:"public_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// CampaignConfig holds the campaign the worker bootstraps and polls
type CampaignConfig struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Type           string        `yaml:"type"`
	Tags           []string      `yaml:"tags"`
	Latitude       float64       `yaml:"latitude"`
	Longitude      float64       `yaml:"longitude"`
	RadiusKm       float64       `yaml:"radius_km"`
	BannerURL      string        `yaml:"banner_url"`
	PosterURL      string        `yaml:"poster_url"`
	Currency       string        `yaml:"currency"`
	TotalRewards   float64       `yaml:"total_rewards"`
	RewardPerTask  float64       `yaml:"reward_per_task"`
	FuelRequired   float64       `yaml:"fuel_required"`
	MaxSubmissions int           `yaml:"max_submissions"`
	Duration       time.Duration `yaml:"duration"`
}

// Spec converts the config section into the domain campaign parameters
func (c CampaignConfig) Spec() domain.CampaignSpec {
	return domain.CampaignSpec{
		Name:           c.Name,
		Description:    c.Description,
		Type:           c.Type,
		Tags:           c.Tags,
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		RadiusKm:       c.RadiusKm,
		BannerURL:      c.BannerURL,
		PosterURL:      c.PosterURL,
		Currency:       c.Currency,
		TotalRewards:   c.TotalRewards,
		RewardPerTask:  c.RewardPerTask,
		FuelRequired:   c.FuelRequired,
		MaxSubmissions: c.MaxSubmissions,
		Duration:       c.Duration,
	}
}

// WorkerConfig holds poll loop settings
type WorkerConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	WorkDir          string        `yaml:"work_dir"`
	FlushDelay       time.Duration `yaml:"flush_delay"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// RetryConfig holds the remote call retry policy
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout"`
}

// DedupConfig selects where processed photo ids are remembered
type DedupConfig struct {
	Backend   string        `yaml:"backend"`
	Capacity  int           `yaml:"capacity"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// EventsConfig selects where photo decisions are published
type EventsConfig struct {
	Backend string `yaml:"backend"`
}

// MetricsConfig holds the worker health/metrics listener
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RedisConfig holds the Redis address, either redis:// URL or host:port
type RedisConfig struct {
	URL string `yaml:"url"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// NATSConfig holds the NATS connection and decision subject
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Name    string `yaml:"name"`
}

// Default returns a configuration populated with built-in defaults
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "geophoto-worker",
			Version:     "dev",
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Witness: WitnessConfig{
			RequestTimeout: 30 * time.Second,
		},
		Campaign: CampaignConfig{
			Name:           domain.DefaultCampaignName,
			Description:    "Example campaign. Take a photo of anything nearby and get rewarded for it.",
			Type:           domain.DefaultCampaignType,
			Tags:           []string{"campaign", "tags"},
			Latitude:       domain.DefaultLatitude,
			Longitude:      domain.DefaultLongitude,
			RadiusKm:       domain.DefaultRadiusKm,
			Currency:       domain.DefaultCurrency,
			TotalRewards:   domain.DefaultTotalRewards,
			RewardPerTask:  domain.DefaultRewardPerTask,
			FuelRequired:   domain.DefaultFuelRequired,
			MaxSubmissions: domain.DefaultMaxSubmissions,
			Duration:       domain.DefaultCampaignDuration,
		},
		Worker: WorkerConfig{
			PollInterval:     domain.DefaultPollInterval,
			WorkDir:          filepath.Join(os.TempDir(), "geophoto-worker"),
			FlushDelay:       domain.DefaultFlushDelay,
			MaxDownloadBytes: 50 << 20,
			ShutdownTimeout:  30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			AttemptTimeout:    30 * time.Second,
		},
		Dedup: DedupConfig{
			Backend:   DedupMemory,
			KeyPrefix: "geophoto:dedup",
		},
		Events: EventsConfig{
			Backend: EventsNone,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL: "localhost:6379",
		},
		RabbitMQ: RabbitMQConfig{
			Host:       "localhost",
			Port:       5672,
			VHost:      "/",
			RoutingKey: "photo.decision",
			Exchange:   ExchangeConfig{Name: "photo_decisions", Type: "topic", Durable: true},
			Queue:      QueueConfig{Name: "photo_decisions", Durable: true},
			Connection: ConnectionConfig{
				RetryAttempts: 5,
				RetryInterval: 2 * time.Second,
				Heartbeat:     10 * time.Second,
			},
			Publish: PublishConfig{
				RetryAttempts:     3,
				RetryInterval:     100 * time.Millisecond,
				BackoffMultiplier: 2.0,
			},
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Subject: "photos.decisions",
			Name:    "geophoto-worker",
		},
	}
}

// Load reads the configuration file on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(config)
	return config, nil
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	var errs []error

	if c.Witness.PhotoAPI == "" {
		errs = append(errs, fmt.Errorf("witness photo_api is required"))
	}
	if c.Witness.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("witness private_key is required"))
	}
	if c.Campaign.Name == "" {
		errs = append(errs, fmt.Errorf("campaign name is required"))
	}
	if c.Campaign.Latitude < -90 || c.Campaign.Latitude > 90 {
		errs = append(errs, fmt.Errorf("invalid campaign latitude: %v", c.Campaign.Latitude))
	}
	if c.Campaign.Longitude < -180 || c.Campaign.Longitude > 180 {
		errs = append(errs, fmt.Errorf("invalid campaign longitude: %v", c.Campaign.Longitude))
	}
	if c.Campaign.RadiusKm < 0 {
		errs = append(errs, fmt.Errorf("campaign radius_km must not be negative"))
	}
	if c.Campaign.Duration <= 0 {
		errs = append(errs, fmt.Errorf("campaign duration must be greater than 0"))
	}
	if c.Worker.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker poll_interval must be greater than 0"))
	}
	if c.Worker.WorkDir == "" {
		errs = append(errs, fmt.Errorf("worker work_dir is required"))
	}
	if c.Worker.FlushDelay < 0 {
		errs = append(errs, fmt.Errorf("worker flush_delay must not be negative"))
	}
	if c.Worker.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("worker shutdown_timeout must be greater than 0"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry max_attempts must be greater than 0"))
	}
	if c.Retry.BackoffMultiplier != 0 && c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, fmt.Errorf("retry backoff_multiplier must be at least 1"))
	}
	if c.Metrics.Port != 0 && (c.Metrics.Port < MinPort || c.Metrics.Port > MaxPort) {
		errs = append(errs, fmt.Errorf("invalid metrics port: %d (must be between %d and %d)", c.Metrics.Port, MinPort, MaxPort))
	}

	switch c.Dedup.Backend {
	case DedupMemory:
		if c.Dedup.Capacity < 0 {
			errs = append(errs, fmt.Errorf("dedup capacity must not be negative"))
		}
	case DedupRedis:
		if c.Redis.URL == "" {
			errs = append(errs, fmt.Errorf("redis url is required for redis dedup backend"))
		}
	case DedupPostgres:
		if err := c.validateDatabase(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dedup backend: %q", c.Dedup.Backend))
	}

	switch c.Events.Backend {
	case EventsNone, "":
	case EventsRabbitMQ:
		if err := c.validateRabbitMQ(); err != nil {
			errs = append(errs, err)
		}
	case EventsNATS:
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			errs = append(errs, fmt.Errorf("nats url and subject are required for nats events backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events backend: %q", c.Events.Backend))
	}

	return errors.Join(errs...)
}

// ValidateAPIConfig checks the settings the decision API needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
