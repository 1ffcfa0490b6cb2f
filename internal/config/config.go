package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roomline/service-booking/pkg/database"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port   int            `mapstructure:"port"`
	AppEnv string         `mapstructure:"app_env"`
	DB     DatabaseConfig `mapstructure:"db"`
	JWT    JWTConfig      `mapstructure:"jwt"`
	Kafka  KafkaConfig    `mapstructure:"kafka"`
	Redis  RedisConfig    `mapstructure:"redis"`
	Log    LogConfig      `mapstructure:"log"`
	CORS   CORSConfig     `mapstructure:"cors"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogQueries   bool   `mapstructure:"log_queries"`
}

// Postgres converts the settings for pkg/database.
func (c DatabaseConfig) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		DBName:       c.Name,
		SSLMode:      c.SSLMode,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		LogQueries:   c.LogQueries,
	}
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// KafkaConfig holds event publishing settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	ConflictsTopic string   `mapstructure:"conflicts_topic"`
}

// RedisConfig holds the slot-lock connection. The lock is off unless enabled.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SlotLock    bool          `mapstructure:"slot_lock"`
	SlotLockTTL time.Duration `mapstructure:"slot_lock_ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CORSConfig lists allowed browser origins. Empty allows any origin.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// Load reads configuration from defaults, an optional config file and
// BOOKING_* environment variables, in increasing precedence.
func Load(path string) (*ServiceConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8082)
	v.SetDefault("app_env", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "booking")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.log_queries", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", "15m")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.conflicts_topic", "booking.conflicts")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.slot_lock", false)
	v.SetDefault("redis.slot_lock_ttl", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("cors.origins", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg ServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *ServiceConfig) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("config: jwt.secret must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Redis.SlotLock && c.Redis.SlotLockTTL <= 0 {
		return errors.New("config: redis.slot_lock_ttl must be positive when the slot lock is enabled")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}
