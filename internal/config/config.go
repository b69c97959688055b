package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                     string
	AppEnv                      string
	AppPort                     string
	DatabaseURL                 string
	RedisURL                    string
	NATSURL                     string
	JWTSecret                   string
	Judge0URL                   string
	Judge0APIKey                string
	Judge0Timeout               time.Duration
	FinalizerInterval           time.Duration
	FinalizerCreditOnlyUnranked bool
	StandingsCacheTTL           time.Duration
	SubmitRateLimit             int
	SubmitRateWindow            time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Arena API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("judge0.timeout", "30s")
	v.SetDefault("finalizer.interval", "5m")
	v.SetDefault("finalizer.credit_only_unranked", true)
	v.SetDefault("standings.cache_ttl", "30s")
	v.SetDefault("submit.rate_limit", 5)
	v.SetDefault("submit.rate_window", "1m")

	judgeTimeout, err := parseDuration(v, "judge0.timeout")
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge0 timeout: %w", err)
	}

	finalizerInterval, err := parseDuration(v, "finalizer.interval")
	if err != nil {
		return Config{}, fmt.Errorf("invalid finalizer interval: %w", err)
	}

	standingsTTL, err := parseDuration(v, "standings.cache_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid standings cache ttl: %w", err)
	}

	rateWindow, err := parseDuration(v, "submit.rate_window")
	if err != nil {
		return Config{}, fmt.Errorf("invalid submit rate window: %w", err)
	}

	cfg := Config{
		AppName:                     v.GetString("app.name"),
		AppEnv:                      v.GetString("app.env"),
		AppPort:                     v.GetString("app.port"),
		DatabaseURL:                 v.GetString("database.url"),
		RedisURL:                    v.GetString("redis.url"),
		NATSURL:                     v.GetString("nats.url"),
		JWTSecret:                   v.GetString("jwt.secret"),
		Judge0URL:                   v.GetString("judge0.url"),
		Judge0APIKey:                v.GetString("judge0.api_key"),
		Judge0Timeout:               judgeTimeout,
		FinalizerInterval:           finalizerInterval,
		FinalizerCreditOnlyUnranked: v.GetBool("finalizer.credit_only_unranked"),
		StandingsCacheTTL:           standingsTTL,
		SubmitRateLimit:             v.GetInt("submit.rate_limit"),
		SubmitRateWindow:            rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.Judge0URL == "" {
		return Config{}, fmt.Errorf("judge0 url must be provided")
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, fmt.Errorf("empty duration for %s", key)
	}
	return time.ParseDuration(raw)
}
