package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Frontend  FrontendConfig  `mapstructure:"frontend"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Reveal    RevealConfig    `mapstructure:"reveal"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds the caller-token verification secret (spec's "out of
// scope" OAuth/LIFF login still hands this core a JWT it must validate).
type AuthConfig struct {
	JWTSigningSecret string `mapstructure:"jwt_signing_secret"`
}

// FrontendConfig holds the base URL used to build LIFF links (spec §6
// "LIFF URL format").
type FrontendConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RedisConfig holds the connection for the cache that backs the
// reveal-tick lock. The LIFF rate limiter is in-process and does not use it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RevealConfig holds the Auto-Assignment Reveal Scheduler's poll interval.
type RevealConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

func (c RevealConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// NotifyConfig holds the outbound notification worker pool and LINE
// Messaging API sender configuration.
type NotifyConfig struct {
	WorkerCount        int    `mapstructure:"worker_count"`
	LineChannelToken   string `mapstructure:"line_channel_token"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Try to read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Parse CORS origins from environment variable
	if originsStr := viper.GetString("CORS_ALLOWED_ORIGINS"); originsStr != "" {
		config.CORS.AllowedOrigins = strings.Split(originsStr, ",")
		for i, origin := range config.CORS.AllowedOrigins {
			config.CORS.AllowedOrigins[i] = strings.TrimSpace(origin)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "secure_dev_password")
	viper.SetDefault("database.name", "clinic_scheduler")
	viper.SetDefault("database.ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)

	// Log defaults
	viper.SetDefault("log.level", "info")

	// CORS defaults
	viper.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	// Auth defaults
	viper.SetDefault("auth.jwt_signing_secret", "")

	// Frontend defaults
	viper.SetDefault("frontend.base_url", "http://localhost:5173")

	// Redis defaults
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Reveal scheduler defaults
	viper.SetDefault("reveal.interval_seconds", 60)

	// Notify defaults
	viper.SetDefault("notify.worker_count", 4)
	viper.SetDefault("notify.line_channel_token", "")

	// Environment variable mappings
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.name", "DB_NAME")
	viper.BindEnv("database.ssl_mode", "DB_SSL_MODE")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("auth.jwt_signing_secret", "JWT_SIGNING_SECRET")
	viper.BindEnv("frontend.base_url", "FRONTEND_URL")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("reveal.interval_seconds", "REVEAL_INTERVAL_SECONDS")
	viper.BindEnv("notify.worker_count", "NOTIFY_WORKER_COUNT")
	viper.BindEnv("notify.line_channel_token", "LINE_CHANNEL_TOKEN")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetServerAddress returns the server address
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
