package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		BaseURL     string `yaml:"base_url" env:"SERVER_BASE_URL"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	// JWT holds the settings used to validate tokens issued by the external identity provider.
	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Payments struct {
		Enabled      bool   `yaml:"enabled" env:"PAYMENTS_ENABLED"`
		BaseURL      string `yaml:"base_url" env:"YOOKASSA_BASE_URL"`
		ShopID       string `yaml:"shop_id" env:"YOOKASSA_SHOP_ID"`
		SecretKey    string `yaml:"secret_key" env:"YOOKASSA_SECRET_KEY"`
		Timeout      string `yaml:"timeout" env:"YOOKASSA_TIMEOUT"`
		MaxAttempts  int    `yaml:"max_attempts" env:"YOOKASSA_MAX_ATTEMPTS"`
		PollInterval string `yaml:"poll_interval" env:"PAYMENTS_POLL_INTERVAL"`
	} `yaml:"payments"`

	Circulation struct {
		LoanPeriod       string `yaml:"loan_period" env:"CIRCULATION_LOAN_PERIOD"`
		MaxRenewals      int    `yaml:"max_renewals" env:"CIRCULATION_MAX_RENEWALS"`
		PickupWindow     string `yaml:"pickup_window" env:"CIRCULATION_PICKUP_WINDOW"`
		SweepInterval    string `yaml:"sweep_interval" env:"CIRCULATION_SWEEP_INTERVAL"`
		NotifyQueueEmail bool   `yaml:"notify_queue_email" env:"CIRCULATION_NOTIFY_QUEUE_EMAIL"`
	} `yaml:"circulation"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		UseTLS    bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
	} `yaml:"smtp"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; env vars alone are enough in containers.
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.BaseURL = "http://localhost:8080"
	config.Server.StoragePath = "uploads"

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "biblioteka"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	// JWT defaults
	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "biblioteka.auth"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Payment gateway defaults
	config.Payments.Enabled = false
	config.Payments.BaseURL = "https://api.yookassa.ru"
	config.Payments.Timeout = "10s"
	config.Payments.MaxAttempts = 3
	config.Payments.PollInterval = "5m"

	// Circulation defaults
	config.Circulation.LoanPeriod = "336h"
	config.Circulation.MaxRenewals = 2
	config.Circulation.PickupWindow = "72h"
	config.Circulation.SweepInterval = "1h"
	config.Circulation.NotifyQueueEmail = true

	// SMTP defaults
	config.SMTP.Port = 587
	config.SMTP.FromName = "Library"
	config.SMTP.FromEmail = "noreply@library.local"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"database connection lifetime": config.Database.ConnMaxLifetime,
		"payment gateway timeout":      config.Payments.Timeout,
		"payment poll interval":        config.Payments.PollInterval,
		"loan period":                  config.Circulation.LoanPeriod,
		"pickup window":                config.Circulation.PickupWindow,
		"sweep interval":               config.Circulation.SweepInterval,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if config.Circulation.MaxRenewals < 0 {
		return fmt.Errorf("max renewals cannot be negative")
	}

	if config.Payments.Enabled && (config.Payments.ShopID == "" || config.Payments.SecretKey == "") {
		return fmt.Errorf("payment gateway shop id and secret key are required when payments are enabled")
	}

	if config.Payments.MaxAttempts < 1 {
		return fmt.Errorf("payment gateway max attempts must be at least 1")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool gets an environment variable as a boolean or returns a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	switch strings.ToLower(valueStr) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}

	return defaultValue
}
