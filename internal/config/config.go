package config

import "time"

// Config is the process configuration. Keys map to environment variables by
// upper-casing and replacing dots with underscores, so state.table is read
// from STATE_TABLE.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	State    StateConfig    `mapstructure:"state"`
	Param    ParamConfig    `mapstructure:"param"`
	Payments PaymentsConfig `mapstructure:"payments"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StateConfig selects where conversation state, local recipients and the
// transfer log live.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // dynamodb | memory
	Table   string `mapstructure:"table"`
}

// ParamConfig is the SSM prefix secrets are read under when they are not
// given directly.
type ParamConfig struct {
	Prefix string `mapstructure:"prefix"`
}

type PaymentsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	TopicARN string `mapstructure:"topic_arn"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory | redis
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)
