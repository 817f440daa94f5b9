package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"JWT_SECRET", "JWT_ISS", "JWT_AUD", "JWT_EXPIRY", "ENVIRONMENT",
		"DB_DSN", "LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT", "ENABLE_METRICS", "ENABLE_SWAGGER", "CONFIG_FILE"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	// Check defaults
	if cfg.JWTSecret != "your-secret-key-change-in-production" {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "era-vendors-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "era-vendors-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 24*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default listen address, got %s", cfg.ListenAddr)
	}
	if cfg.EnableMetrics {
		t.Error("Expected metrics disabled by default")
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("DB_DSN", "postgres://localhost/vendors")
	t.Setenv("ENABLE_METRICS", "true")

	cfg := Load()

	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
	if cfg.DatabaseURL != "postgres://localhost/vendors" {
		t.Errorf("Expected DB_DSN from env, got %s", cfg.DatabaseURL)
	}
	if !cfg.EnableMetrics {
		t.Error("Expected ENABLE_METRICS=true to enable metrics")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret:   "valid-secret-that-is-long-enough-for-testing",
			JWTIssuer:   "test-issuer",
			JWTAudience: "test-audience",
			JWTExpiry:   time.Hour,
		}
	}
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"secret too short", func(c *Config) { c.JWTSecret = "short" }, true},
		{"empty issuer", func(c *Config) { c.JWTIssuer = "" }, true},
		{"empty audience", func(c *Config) { c.JWTAudience = "" }, true},
		{"negative expiry", func(c *Config) { c.JWTExpiry = -time.Hour }, true},
		{"zero expiry", func(c *Config) { c.JWTExpiry = 0 }, true},
		{"expiry too short", func(c *Config) { c.JWTExpiry = 30 * time.Second }, true},
		{"expiry too long", func(c *Config) { c.JWTExpiry = 31 * 24 * time.Hour }, true},
		{"seed user without hash", func(c *Config) {
			c.Users = []SeedUser{{Email: "ops@example.com"}}
		}, true},
		{"seed user complete", func(c *Config) {
			c.Users = []SeedUser{{Email: "ops@example.com", PasswordHash: "$2a$10$abc"}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-long-enough-for-testing")
	t.Setenv("JWT_EXPIRY", "1h")

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Errorf("LoadAndValidate() failed with valid config: %v", err)
	}
	if cfg == nil {
		t.Error("LoadAndValidate() returned nil config with valid config")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err = LoadAndValidate(); err == nil {
		t.Error("LoadAndValidate() should fail with invalid config")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
jwt_secret: file-secret-that-is-long-enough-for-testing
jwt_expiry: 90m
listen_addr: ":9090"
log_format: console
users:
  - email: buyer@example.com
    first_name: Dana
    last_name: Buyer
    password_hash: "$2a$10$abcdefghijklmnopqrstuv"
    roles: [editor]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LISTEN_ADDR", ":7070")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.JWTExpiry != 90*time.Minute {
		t.Errorf("Expected jwt_expiry from file, got %v", cfg.JWTExpiry)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("Expected env to override file, got %s", cfg.ListenAddr)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("Expected log_format from file, got %s", cfg.LogFormat)
	}
	if cfg.JWTIssuer != "era-vendors-api" {
		t.Errorf("Expected default issuer to survive, got %s", cfg.JWTIssuer)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].FirstName != "Dana" || cfg.Users[0].Roles[0] != "editor" {
		t.Errorf("Unexpected users: %+v", cfg.Users)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("jwt_expiry: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("Expected error for unparsable jwt_expiry")
	}
}

func TestProductionSecretValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "your-secret-key-change-in-production")

	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Error("Production validation should fail with default secret")
	}

	t.Setenv("JWT_SECRET", "proper-production-secret-that-is-long-enough")
	cfg = Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Production validation should pass with proper secret: %v", err)
	}
}
