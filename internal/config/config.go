package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIKeyEnv is the variable the API key is read from, typically set in .env
const APIKeyEnv = "ALPHA_VANTAGE_API"

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	AlphaVantage AlphaVantageConfig
	Quota        QuotaConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Logging      LoggingConfig
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	Driver          string `validate:"oneof=pgx postgres"`
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// AlphaVantageConfig holds settings for the quotes API
type AlphaVantageConfig struct {
	BaseURL           string `validate:"required,url"`
	APIKey            string
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerMinute int           `validate:"gte=0"`
}

// QuotaConfig holds settings for the daily call ledger
type QuotaConfig struct {
	Backend    string `validate:"oneof=file memory database"`
	FilePath   string
	DailyLimit int `validate:"gt=0"`
}

// RedisConfig holds settings for the history cache
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig holds settings for ingestion events
type KafkaConfig struct {
	Enabled  bool
	Brokers  string
	Topic    string
	ClientID string
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// BrokerList splits the comma separated broker setting
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// LoadConfig loads the configuration from file and environment variables.
// A missing file at path is not an error; defaults and environment apply.
func LoadConfig(path string) (*Config, error) {
	// Local .env for development; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Environment variables override
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("alphaVantage.apiKey", APIKeyEnv, "ALPHAVANTAGE_APIKEY"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and bounded settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.idleTimeout", "120s")

	// Database defaults
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "quote_vault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "30m")
	v.SetDefault("database.connectTimeout", "30s")

	// Alpha Vantage defaults
	v.SetDefault("alphaVantage.baseURL", "https://www.alphavantage.co/query")
	v.SetDefault("alphaVantage.apiKey", "")
	v.SetDefault("alphaVantage.timeout", "30s")
	v.SetDefault("alphaVantage.requestsPerMinute", 5)

	// Quota defaults
	v.SetDefault("quota.backend", "file")
	v.SetDefault("quota.filePath", "api_limit_count.json")
	v.SetDefault("quota.dailyLimit", 25)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "6h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "quote-ingestion-events")
	v.SetDefault("kafka.clientID", "quote-vault")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
