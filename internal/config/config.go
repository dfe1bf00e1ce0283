package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type TwitterConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	RateRPS     float64       `yaml:"rate_rps"`
	RateBurst   int           `yaml:"rate_burst"`
	Credentials Credentials   `yaml:"credentials"`
}

// Credentials are the OAuth 1.0a keys for the operating user. Supply them
// through environment expansion, not literal values in the config file.
type Credentials struct {
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
}

func (c Credentials) Validate() error {
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("missing consumer key or secret")
	}
	if c.AccessToken == "" || c.AccessTokenSecret == "" {
		return fmt.Errorf("missing access token or secret")
	}
	return nil
}

type PipelineConfig struct {
	SleepTime              time.Duration `yaml:"sleep_time"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	LockStaleAfter         time.Duration `yaml:"lock_stale_after"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Enabled reports whether block events should be published at all.
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "blockbot.db"
	}
	if c.Twitter.BaseURL == "" {
		c.Twitter.BaseURL = "https://api.twitter.com/1.1"
	}
	if c.Twitter.Timeout == 0 {
		c.Twitter.Timeout = 15 * time.Second
	}
	if c.Twitter.RateRPS == 0 {
		c.Twitter.RateRPS = 1
	}
	if c.Twitter.RateBurst == 0 {
		c.Twitter.RateBurst = 3
	}
	if c.Pipeline.SleepTime == 0 {
		c.Pipeline.SleepTime = 600 * time.Second
	}
	if c.Pipeline.MaxConsecutiveFailures == 0 {
		c.Pipeline.MaxConsecutiveFailures = 5
	}
	if c.Pipeline.LockStaleAfter == 0 {
		c.Pipeline.LockStaleAfter = 30 * time.Minute
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "blockbot"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "blocks"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "blockbot_blocks"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
