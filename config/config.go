package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	DBDriver           string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UploadDir          string
	LogLevel           string
	RedisURL           string
	MenuCacheTTL       time.Duration

	ChurnAlertEnabled        bool
	ChurnThresholdBufferDays int
	ChurnAlertCron           string
	ChurnDedupeOpenTasks     bool
	DefaultPhoneRegion       string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// In production environment variables are set directly,
		// so it's okay if .env files don't exist
		if err := godotenv.Load(); err != nil {
			GetLogger().Debug("No .env file found, using system environment variables")
		}
	} else {
		GetLogger().WithField("file", envFile).Info("Loaded configuration")
	}

	config := &Config{
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		DBDriver:                 strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		Port:                     getEnv("PORT", "8080"),
		GoEnv:                    getEnv("GO_ENV", "development"),
		Auth0Domain:              getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:            getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:                getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:              getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:           getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:       getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadDir:                getEnv("UPLOAD_DIR", "./uploads"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		MenuCacheTTL:             getEnvDuration("MENU_CACHE_TTL", 10*time.Minute),
		ChurnAlertEnabled:        getEnvBool("CHURN_ALERT_ENABLED", true),
		ChurnThresholdBufferDays: getEnvInt("CHURN_THRESHOLD_BUFFER_DAYS", 15),
		ChurnAlertCron:           getEnv("CHURN_ALERT_CRON", "0 8 * * *"),
		ChurnDedupeOpenTasks:     getEnvBool("CHURN_DEDUPE_OPEN_TASKS", false),
		DefaultPhoneRegion:       strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "BR")),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ChurnThresholdBufferDays < 0 {
		return fmt.Errorf("CHURN_THRESHOLD_BUFFER_DAYS must not be negative, got %d", c.ChurnThresholdBufferDays)
	}
	if _, err := cron.ParseStandard(c.ChurnAlertCron); err != nil {
		return fmt.Errorf("invalid CHURN_ALERT_CRON %q: %w", c.ChurnAlertCron, err)
	}
	if c.IsProduction() && c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required in production")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// AuthEnabled reports whether bearer tokens are validated
func (c *Config) AuthEnabled() bool {
	return c.Auth0Domain != ""
}

// S3Enabled reports whether attachments go to S3 instead of local disk
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the configuration from the last successful Load
func GetConfig() *Config {
	return current
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		GetLogger().WithField("key", key).Warnf("invalid integer %q, using default %d", value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		GetLogger().WithField("key", key).Warnf("invalid boolean %q, using default %t", value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		GetLogger().WithField("key", key).Warnf("invalid duration %q, using default %s", value, defaultValue)
		return defaultValue
	}
	return d
}
