package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml from the given directories (first hit wins), then
// applies environment overrides. A .env file in the working directory is
// loaded first when present; it never overrides variables already set.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

// setDefaults also registers every key, which AutomaticEnv needs for
// Unmarshal to see environment-only values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("state.backend", BackendDynamoDB)
	v.SetDefault("state.table", "")
	v.SetDefault("param.prefix", "")
	v.SetDefault("payments.base_url", "https://api.paystack.co")
	v.SetDefault("payments.secret_key", "")
	v.SetDefault("payments.timeout", 10*time.Second)
	v.SetDefault("openai.enabled", true)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 10*time.Second)
	v.SetDefault("notify.topic_arn", "")
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("server.addr", ":8080")
}

func validate(cfg *Config) error {
	switch cfg.State.Backend {
	case BackendDynamoDB:
		if cfg.State.Table == "" {
			return errors.New("state.table is required for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown state.backend %q", cfg.State.Backend)
	}

	switch cfg.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown cache.backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}

	if cfg.Payments.SecretKey == "" && cfg.Param.Prefix == "" {
		return errors.New("payments.secret_key or param.prefix must be set")
	}
	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey == "" && cfg.Param.Prefix == "" {
		return errors.New("openai.api_key or param.prefix must be set when openai is enabled")
	}
	return nil
}
