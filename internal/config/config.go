package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// RateLimit is accepted requests per second on /notify; 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

type QueueConfig struct {
	Backend string `mapstructure:"backend"` // memory or redis
	Size    int    `mapstructure:"size"`
	Key     string `mapstructure:"key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Worker WorkerConfig `mapstructure:"worker"`
	Log    LogConfig    `mapstructure:"log"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load reads config.yaml from the current directory or ./config, then
// applies WEBPUSH_* environment overrides (e.g. WEBPUSH_REDIS_ADDR). A
// missing file is fine; defaults cover every key.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("webpush")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.burst", 50)
	v.SetDefault("queue.backend", BackendMemory)
	v.SetDefault("queue.size", 1000)
	v.SetDefault("queue.key", "webpush_queue")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("worker.pool_size", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

func (c *Config) validate() error {
	c.Queue.Backend = strings.ToLower(strings.TrimSpace(c.Queue.Backend))
	switch c.Queue.Backend {
	case BackendMemory:
		if c.Queue.Size < 1 {
			return errors.Errorf("queue.size must be positive, got %d", c.Queue.Size)
		}
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
		if strings.TrimSpace(c.Queue.Key) == "" {
			return errors.New("queue.key is required for the redis backend")
		}
	default:
		return errors.Errorf("unknown queue.backend %q", c.Queue.Backend)
	}
	if c.Worker.PoolSize < 1 {
		return errors.Errorf("worker.pool_size must be at least 1, got %d", c.Worker.PoolSize)
	}
	if c.Server.RateLimit < 0 {
		return errors.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	return nil
}
