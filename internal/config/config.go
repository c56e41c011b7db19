// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"omitempty,oneof=debug info warn warning error"`

	DBDriver    string `validate:"oneof=sqlite postgres"`
	DBPath      string `validate:"required_if=DBDriver sqlite"`
	DatabaseURL string `validate:"required_if=DBDriver postgres"`

	MaxConns        int32 `validate:"gte=1"`
	MinConns        int32 `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	JWTSecret string        `validate:"required,min=16"`
	TokenTTL  time.Duration `validate:"gt=0"`

	PublicURL string `validate:"required,url"`
	LoginURL  string `validate:"required"`

	ResolveRPS   float64 `validate:"gt=0"`
	ResolveBurst int     `validate:"gte=1"`

	CORSOrigins []string
}

// Load reads an optional .env file (or the given files) and then the
// process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("env file not loaded, using process environment", "error", err)
	}

	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		LogLevel:        strings.ToLower(os.Getenv("LOG_LEVEL")),
		DBDriver:        getEnvWithDefault("DB_DRIVER", "sqlite"),
		DBPath:          getEnvWithDefault("DB_PATH", "./data/villagebank.db"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 1)),
		MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		PublicURL:       getEnvWithDefault("PUBLIC_URL", "http://localhost:8080"),
		LoginURL:        getEnvWithDefault("LOGIN_URL", "/login"),
		ResolveRPS:      getEnvAsFloat("RESOLVE_RPS", 5),
		ResolveBurst:    getEnvAsInt("RESOLVE_BURST", 10),
		CORSOrigins:     splitList(getEnvWithDefault("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded", "port", cfg.Port, "db_driver", cfg.DBDriver, "public_url", cfg.PublicURL)
	return cfg, nil
}

// Validate checks the settings and reports every bad field at once.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	duration, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return duration
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
