package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpilhlt/formfill-relay/internal/models"
)

var (
	ErrInvalidPort      = errors.New("PORT must be between 1 and 65535")
	ErrInvalidMaxTokens = errors.New("OPENAI_MAX_TOKENS must be positive")
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Log      LogConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type UpstreamConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	RelayKey string
}

// Load reads the environment, after merging in envFile if it exists.
// Variables already present in the environment win over the file.
// An empty OPENAI_API_KEY is not an error: upstream rejects the call.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: os.Getenv("HOST"),
			Port: getEnvIntOrDefault("PORT", 3000),
		},
		Upstream: UpstreamConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			BaseURL:   getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:     getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
			MaxTokens: getEnvIntOrDefault("OPENAI_MAX_TOKENS", 200),
			Timeout:   time.Duration(getEnvIntOrDefault("UPSTREAM_TIMEOUT_SEC", 0)) * time.Second,
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			RelayKey: os.Getenv("RELAY_KEY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Apply overrides env values with options given on the command line.
// Zero values leave the env value in place.
func (c *Config) Apply(options *models.Options) error {
	if options == nil {
		return nil
	}
	if options.Host != "" {
		c.Server.Host = options.Host
	}
	if options.Port != 0 {
		c.Server.Port = options.Port
	}
	if options.Debug {
		c.Log.Level = "debug"
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Upstream.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
