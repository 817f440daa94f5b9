package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// SeedUser is an account loaded from the config file into the in-memory user store.
type SeedUser struct {
	Email        string   `yaml:"email"`
	FirstName    string   `yaml:"first_name"`
	LastName     string   `yaml:"last_name"`
	PasswordHash string   `yaml:"password_hash"`
	Roles        []string `yaml:"roles"`
}

type Config struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTAudience string        `yaml:"jwt_audience"`
	JWTExpiry   time.Duration `yaml:"-"`
	RawExpiry   string        `yaml:"jwt_expiry"`

	Environment   string `yaml:"environment"`
	DatabaseURL   string `yaml:"database_url"`
	ListenAddr    string `yaml:"listen_addr"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableDocs    bool   `yaml:"enable_docs"`

	Users []SeedUser `yaml:"users"`
}

func defaults() *Config {
	return &Config{
		JWTSecret:   defaultJWTSecret,
		JWTIssuer:   "era-vendors-api",
		JWTAudience: "era-vendors-api",
		JWTExpiry:   24 * time.Hour, // Default to 24 hours
		Environment: "development",
		ListenAddr:  ":8080",
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Load reads the configuration from environment variables only.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile layers a YAML file between the defaults and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.RawExpiry != "" {
		expiry, err := time.ParseDuration(cfg.RawExpiry)
		if err != nil {
			return nil, fmt.Errorf("jwt_expiry: %w", err)
		}
		cfg.JWTExpiry = expiry
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadAndValidate loads CONFIG_FILE when set, then the environment, and validates the result.
func LoadAndValidate() (*Config, error) {
	var cfg *Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	} else {
		cfg = Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the JWT settings and the seed users.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT secret must be at least 32 characters")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT secret must be changed in production")
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT issuer is required")
	}
	if c.JWTAudience == "" {
		return errors.New("JWT audience is required")
	}
	if c.JWTExpiry < time.Minute {
		return errors.New("JWT expiry must be at least 1 minute")
	}
	if c.JWTExpiry > 30*24*time.Hour {
		return errors.New("JWT expiry must not exceed 30 days")
	}
	for i, u := range c.Users {
		if strings.TrimSpace(u.Email) == "" || u.PasswordHash == "" {
			return fmt.Errorf("users[%d]: email and password_hash are required", i)
		}
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT selects production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func applyEnv(c *Config) {
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISS", c.JWTIssuer)
	c.JWTAudience = getEnv("JWT_AUD", c.JWTAudience)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.DatabaseURL = getEnv("DB_DSN", c.DatabaseURL)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			c.JWTExpiry = expiry
		}
	}
	if v := os.Getenv("ENABLE_METRICS"); v != "" {
		c.EnableMetrics = v == "true"
	}
	if v := os.Getenv("ENABLE_SWAGGER"); v != "" {
		c.EnableDocs = v == "true"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
