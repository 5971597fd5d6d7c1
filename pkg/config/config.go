package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	Server      struct {
		Host            string        `yaml:"host" env:"IP"`
		Port            int           `yaml:"port" env:"PORT"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level     string `yaml:"level" env:"LOG_LEVEL"`
		Format    string `yaml:"format" env:"LOG_FORMAT"`
		Output    string `yaml:"output"`
		Collector struct {
			Topic          string        `yaml:"topic"`
			Interval       time.Duration `yaml:"interval"`
			CountThreshold int           `yaml:"count_threshold"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type string `yaml:"type" env:"BACKEND"`
	} `yaml:"backend"`
	Yahoo struct {
		BaseURL   string        `yaml:"base_url" env:"YAHOO_BASE_URL"`
		UserAgent string        `yaml:"user_agent"`
		Interval  string        `yaml:"interval"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"yahoo"`
	Model struct {
		TrainRatio float64 `yaml:"train_ratio"`
		MinSamples int     `yaml:"min_samples"`
		MaxHorizon int     `yaml:"max_horizon"`
	} `yaml:"model"`
	Queue struct {
		Workers    int           `yaml:"workers" env:"WORKERS"`
		Size       int           `yaml:"size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		KeyPrefix  string        `yaml:"key_prefix"`
	} `yaml:"queue"`
	Redis struct {
		Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED"`
		Host     string        `yaml:"host" env:"REDIS_HOST"`
		Port     int           `yaml:"port" env:"REDIS_PORT"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		QuoteTTL time.Duration `yaml:"quote_ttl"`
		L1Size   int           `yaml:"l1_size"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" env:"CLICKHOUSE_ENABLED"`
		Host             string        `yaml:"host" env:"CLICKHOUSE_HOST"`
		Port             int           `yaml:"port" env:"CLICKHOUSE_PORT"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user" env:"CLICKHOUSE_USER"`
		Password         string        `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic        string   `yaml:"topic" env:"KAFKA_TOPIC"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Default returns a configuration usable without any external infrastructure.
func Default() *Config {
	c := &Config{Environment: "development"}
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.SlowThreshold = 2 * time.Second
	c.Server.RateLimit.Capacity = 10
	c.Server.RateLimit.RefillPerSec = 2
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"
	c.Log.Collector.Interval = 30 * time.Second
	c.Log.Collector.CountThreshold = 100
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Backend.Type = "clickhouse"
	c.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	c.Yahoo.UserAgent = "Mozilla/5.0 (compatible; stockcast/1.0)"
	c.Yahoo.Interval = "1d"
	c.Yahoo.Timeout = 10 * time.Second
	c.Model.TrainRatio = 0.8
	c.Model.MinSamples = 5
	c.Model.MaxHorizon = 365
	c.Queue.Workers = 4
	c.Queue.Size = 256
	c.Queue.RetryLimit = 2
	c.Queue.RetryDelay = 10 * time.Second
	c.Queue.KeyPrefix = "stockcast:queue"
	c.Redis.Host = "localhost"
	c.Redis.Port = 6379
	c.Redis.Prefix = "stockcast"
	c.Redis.QuoteTTL = 5 * time.Minute
	c.Redis.L1Size = 512
	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "stockcast"
	c.ClickHouse.User = "default"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second
	c.Kafka.Topic = "stockcast.predictions"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.BatchTimeout = 50 * time.Millisecond
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "stockcast"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.BufferSize = 64
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 50 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 2 * time.Second
	return c
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		c = Default()
	}

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
	}
	if c.Log.Collector.Topic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when log.collector.topic is set")
	}
	if c.Yahoo.BaseURL == "" {
		return fmt.Errorf("yahoo.base_url is required")
	}
	if c.Model.TrainRatio <= 0 || c.Model.TrainRatio >= 1 {
		return fmt.Errorf("model.train_ratio must be in (0, 1), got %v", c.Model.TrainRatio)
	}
	if c.Model.MaxHorizon <= 0 {
		return fmt.Errorf("model.max_horizon must be positive")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	return nil
}
