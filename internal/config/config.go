package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. Judge
// credentials are injected here and passed down explicitly; no component
// reads the environment on its own.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	AllowOrigins      string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	JWTSecret         string
	JudgeURL          string
	JudgeAPIKey       string
	JudgeAPIHost      string
	JudgePollInterval time.Duration
	JudgeMaxWait      time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	SubmitLimitMax    int
	SubmitLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration from environment variables and an optional .env
// file. Missing judge credentials are a startup error, not a per-request one.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEQUEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeQuest API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("judge.poll_interval", "1s")
	v.SetDefault("judge.max_wait", "2m")
	v.SetDefault("ratelimit.max", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("submit.limit_max", 10)
	v.SetDefault("submit.limit_window", "1m")

	pollInterval, err := time.ParseDuration(v.GetString("judge.poll_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge poll interval: %w", err)
	}
	maxWait, err := time.ParseDuration(v.GetString("judge.max_wait"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge max wait: %w", err)
	}
	limitWindow, err := time.ParseDuration(v.GetString("ratelimit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}
	submitWindow, err := time.ParseDuration(v.GetString("submit.limit_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit limit window: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		AllowOrigins:      v.GetString("cors.origins"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		JudgeURL:          v.GetString("judge.url"),
		JudgeAPIKey:       v.GetString("judge.api_key"),
		JudgeAPIHost:      v.GetString("judge.api_host"),
		JudgePollInterval: pollInterval,
		JudgeMaxWait:      maxWait,
		RateLimitMax:      v.GetInt("ratelimit.max"),
		RateLimitWindow:   limitWindow,
		SubmitLimitMax:    v.GetInt("submit.limit_max"),
		SubmitLimitWindow: submitWindow,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JudgeURL == "" || cfg.JudgeAPIKey == "" {
		return Config{}, fmt.Errorf("judge url and api key must be provided")
	}

	return cfg, nil
}
