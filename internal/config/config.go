package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the console and the stub
// backend. All values come from the environment; a .env file is loaded
// when present.
type Config struct {
	// BackendBaseURL is the base URL of the spa admin API, including the
	// /api/v1 prefix.
	BackendBaseURL string
	// AdminToken is the bearer token for admin endpoints.
	AdminToken string
	// RequestTimeout bounds every single API request.
	RequestTimeout time.Duration
	// Stage selects the logging profile ("dev" or "prod").
	Stage string
	// LogLevel overrides the default log level when set.
	LogLevel string
	// StubAddr is the listen address of the local stub backend.
	StubAddr string
}

const (
	defaultBaseURL = "http://localhost:9002/api/v1"
	defaultTimeout = 15 * time.Second
	defaultStage   = "dev"
	defaultStub    = ":9002"
)

// New loads and validates configuration from environment variables.
// The admin token is required for the console; the stub backend does not
// need one and should use NewStub instead.
func New() (*Config, error) {
	cfg := load()
	if cfg.AdminToken == "" {
		return nil, fmt.Errorf("missing required env: SPA_ADMIN_TOKEN")
	}
	return cfg, nil
}

// NewStub loads configuration for the stub backend, where no admin token
// is required.
func NewStub() (*Config, error) {
	return load(), nil
}

func load() *Config {
	_ = godotenv.Load()

	return &Config{
		BackendBaseURL: getEnv("SPA_API_BASE_URL", defaultBaseURL),
		AdminToken:     os.Getenv("SPA_ADMIN_TOKEN"),
		RequestTimeout: getEnvDuration("SPA_HTTP_TIMEOUT_SECONDS", defaultTimeout),
		Stage:          getEnv("SPA_STAGE", defaultStage),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		StubAddr:       getEnv("SPA_STUB_ADDR", defaultStub),
	}
}

// IsProd reports whether the prod logging profile is selected.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.Stage, "prod")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	seconds, err := strconv.Atoi(val)
	if err != nil || seconds <= 0 {
		return defaultVal
	}
	return time.Duration(seconds) * time.Second
}
