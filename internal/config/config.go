package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigPathEnv names the optional TOML file layered over the defaults.
const ConfigPathEnv = "WARNENGINE_CONFIG"

// Config represents the complete service configuration
type Config struct {
	Environment string          `toml:"environment"`
	HTTP        HTTPConfig      `toml:"http"`
	Database    DatabaseConfig  `toml:"database"`
	Redis       RedisConfig     `toml:"redis"`
	MinIO       MinIOConfig     `toml:"minio"`
	Kafka       KafkaConfig     `toml:"kafka"`
	JWT         JWTConfig       `toml:"jwt"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Delivery    DeliveryConfig  `toml:"delivery"`
	Relay       RelayConfig     `toml:"relay"`
	Log         LogConfig       `toml:"log"`
}

type HTTPConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string `toml:"url"`
	MaxConns       int32  `toml:"max_conns"`
	MigrateOnStart bool   `toml:"migrate_on_start"`
}

type RedisConfig struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// MinIOConfig controls the failed delivery archive.
type MinIOConfig struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
	Bucket    string `toml:"bucket"`
}

// KafkaConfig controls the lead events consumer.
type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	GroupID string   `toml:"group_id"`
}

// JWTConfig accepts either a shared HMAC secret or a JWKS endpoint.
type JWTConfig struct {
	Secret  string `toml:"secret"`
	JWKSURL string `toml:"jwks_url"`
}

type SchedulerConfig struct {
	RealtimeInterval   time.Duration `toml:"realtime_interval"`
	HourlyInterval     time.Duration `toml:"hourly_interval"`
	DailyInterval      time.Duration `toml:"daily_interval"`
	EscalationInterval time.Duration `toml:"escalation_interval"`
	DeliveryInterval   time.Duration `toml:"delivery_interval"`
	ArchiveInterval    time.Duration `toml:"archive_interval"`
	LockTTL            time.Duration `toml:"lock_ttl"`
}

type DeliveryConfig struct {
	WorkerID        string             `toml:"worker_id"`
	BatchSize       int                `toml:"batch_size"`
	SendTimeout     time.Duration      `toml:"send_timeout"`
	ClaimStaleAfter time.Duration      `toml:"claim_stale_after"`
	ChannelRates    map[string]float64 `toml:"channel_rates"`
	RateBurst       int                `toml:"rate_burst"`
	AgencyTimezone  string             `toml:"agency_timezone"`
}

// RelayConfig points at the outbound gateways for email, sms and push.
type RelayConfig struct {
	EmailURL string        `toml:"email_url"`
	SMSURL   string        `toml:"sms_url"`
	PushURL  string        `toml:"push_url"`
	APIKey   string        `toml:"api_key"`
	Timeout  time.Duration `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConns:       20,
			MigrateOnStart: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CacheTTL: 10 * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "failed-notifications",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "lead-events",
			GroupID: "warnengine",
		},
		Scheduler: SchedulerConfig{
			RealtimeInterval:   time.Minute,
			HourlyInterval:     time.Hour,
			DailyInterval:      24 * time.Hour,
			EscalationInterval: 15 * time.Minute,
			DeliveryInterval:   10 * time.Second,
			ArchiveInterval:    time.Hour,
			LockTTL:            10 * time.Minute,
		},
		Delivery: DeliveryConfig{
			WorkerID:        hostname,
			BatchSize:       100,
			SendTimeout:     10 * time.Second,
			ClaimStaleAfter: 5 * time.Minute,
			ChannelRates: map[string]float64{
				"EMAIL":   20,
				"SMS":     5,
				"PUSH":    50,
				"WEBHOOK": 10,
			},
			RateBurst:      10,
			AgencyTimezone: "Europe/Belgrade",
		},
		Relay: RelayConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named by
// WARNENGINE_CONFIG and finally environment variables, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the values present in a TOML file.
func (c *Config) LoadFile(filename string) error {
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.HTTP.Port = getEnvInt("PORT", c.HTTP.Port)
	c.HTTP.CORSOrigins = getEnvList("CORS_ORIGINS", c.HTTP.CORSOrigins)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.MigrateOnStart = getEnvBool("DATABASE_MIGRATE", c.Database.MigrateOnStart)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.MinIO.Enabled = getEnvBool("MINIO_ENABLED", c.MinIO.Enabled)
	c.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", c.MinIO.Endpoint)
	c.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", c.MinIO.AccessKey)
	c.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", c.MinIO.SecretKey)
	c.MinIO.UseSSL = getEnvBool("MINIO_USE_SSL", c.MinIO.UseSSL)
	c.MinIO.Bucket = getEnv("MINIO_BUCKET", c.MinIO.Bucket)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = getEnvList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.JWKSURL = getEnv("JWKS_URL", c.JWT.JWKSURL)

	c.Delivery.WorkerID = getEnv("WORKER_ID", c.Delivery.WorkerID)
	c.Delivery.BatchSize = getEnvInt("DELIVERY_BATCH_SIZE", c.Delivery.BatchSize)
	c.Delivery.AgencyTimezone = getEnv("AGENCY_TIMEZONE", c.Delivery.AgencyTimezone)

	c.Relay.EmailURL = getEnv("RELAY_EMAIL_URL", c.Relay.EmailURL)
	c.Relay.SMSURL = getEnv("RELAY_SMS_URL", c.Relay.SMSURL)
	c.Relay.PushURL = getEnv("RELAY_PUSH_URL", c.Relay.PushURL)
	c.Relay.APIKey = getEnv("RELAY_API_KEY", c.Relay.APIKey)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Environment == "production" && c.JWT.Secret == "" && c.JWT.JWKSURL == "" {
		return fmt.Errorf("JWT_SECRET or JWKS_URL is required in production")
	}
	if c.JWT.Secret != "" && len(c.JWT.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters long")
	}
	if c.Delivery.BatchSize <= 0 {
		return fmt.Errorf("delivery batch size must be positive")
	}
	if c.Delivery.SendTimeout <= 0 {
		return fmt.Errorf("delivery send timeout must be positive")
	}
	if c.Delivery.ClaimStaleAfter <= c.Delivery.SendTimeout {
		return fmt.Errorf("claim_stale_after (%s) must exceed send_timeout (%s)", c.Delivery.ClaimStaleAfter, c.Delivery.SendTimeout)
	}
	for channel, rate := range c.Delivery.ChannelRates {
		if rate <= 0 {
			return fmt.Errorf("channel rate for %s must be positive", channel)
		}
	}
	if _, err := time.LoadLocation(c.Delivery.AgencyTimezone); err != nil {
		return fmt.Errorf("invalid agency timezone %q: %w", c.Delivery.AgencyTimezone, err)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}
	if c.MinIO.Enabled && c.MinIO.Bucket == "" {
		return fmt.Errorf("minio bucket is required when the archive is enabled")
	}

	intervals := map[string]time.Duration{
		"realtime_interval":   c.Scheduler.RealtimeInterval,
		"hourly_interval":     c.Scheduler.HourlyInterval,
		"daily_interval":      c.Scheduler.DailyInterval,
		"escalation_interval": c.Scheduler.EscalationInterval,
		"delivery_interval":   c.Scheduler.DeliveryInterval,
		"archive_interval":    c.Scheduler.ArchiveInterval,
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("scheduler %s must be positive", name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
