// Package config loads the pipeline configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ngx_pipeline/internal/platform/db"
	"ngx_pipeline/internal/platform/logger"
)

type Config struct {
	Environment string         `yaml:"environment" default:"development"`
	Log         logger.Config  `yaml:"log"`
	Database    db.Config      `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Server      ServerConfig   `yaml:"server"`
	Source      SourceConfig   `yaml:"source"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	Notify      NotifyConfig   `yaml:"notify"`
	Schedule    ScheduleConfig `yaml:"schedule"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"15m"`
}

type ServerConfig struct {
	Port      int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" default:"12h"`
}

// SourceConfig configures the NGX price list fetcher.
type SourceConfig struct {
	URL               string        `yaml:"url" default:"https://ngxgroup.com/exchange/data/equities-price-list/" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	MaxAttempts       int           `yaml:"max_attempts" default:"3" validate:"min=1,max=10"`
	Backoff           time.Duration `yaml:"backoff" default:"2s"`
	RequestsPerMinute int           `yaml:"requests_per_minute" default:"6" validate:"min=0"`
	UserAgent         string        `yaml:"user_agent" default:"ngx-pipeline/1.0"`
}

type StagesConfig struct {
	Fetch                   bool `yaml:"fetch" default:"true"`
	Validate                bool `yaml:"validate" default:"true"`
	Transform               bool `yaml:"transform" default:"true"`
	LoadInstruments         bool `yaml:"load_instruments" default:"true"`
	LoadPrices              bool `yaml:"load_prices" default:"true"`
	ComputeIndicators       bool `yaml:"compute_indicators" default:"true"`
	EvaluateAlerts          bool `yaml:"evaluate_alerts" default:"true"`
	GenerateRecommendations bool `yaml:"generate_recommendations" default:"true"`
	Notify                  bool `yaml:"notify" default:"true"`
}

type QualityConfig struct {
	// 0 disables the bound. SUSPICIOUS stays unused unless these are set.
	MaxAbsDailyPct   float64  `yaml:"max_abs_daily_pct" validate:"min=0"`
	MaxDayOverDayPct float64  `yaml:"max_day_over_day_pct" validate:"min=0"`
	ValidExchanges   []string `yaml:"valid_exchanges"`
}

type AdvisorConfig struct {
	MinScore      float64 `yaml:"min_score" default:"40" validate:"min=0,max=100"`
	MinConfidence float64 `yaml:"min_confidence" default:"0.5" validate:"min=0,max=1"`
	HorizonDays   int     `yaml:"horizon_days" default:"30" validate:"min=1"`
}

type PipelineConfig struct {
	Stages            StagesConfig  `yaml:"stages"`
	BatchSize         int           `yaml:"batch_size" default:"50" validate:"min=1"`
	Workers           int           `yaml:"workers" default:"4" validate:"min=1,max=64"`
	HistoryDepth      int           `yaml:"history_depth" default:"100" validate:"min=2"`
	Codes             []string      `yaml:"codes"`
	MaxReportedIssues int           `yaml:"max_reported_issues" default:"50" validate:"min=1"`
	RunTimeout        time.Duration `yaml:"run_timeout" default:"10m"`
	Quality           QualityConfig `yaml:"quality"`
	Advisor           AdvisorConfig `yaml:"advisor"`
}

type SlackConfig struct {
	Enabled           bool   `yaml:"enabled"`
	WebhookURL        string `yaml:"webhook_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute" default:"30" validate:"min=0"`
}

type RedisNotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel" default:"ngx:alerts"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" default:"ngx.alerts"`
}

type NotifyConfig struct {
	Log   bool              `yaml:"log" default:"true"`
	Slack SlackConfig       `yaml:"slack"`
	Redis RedisNotifyConfig `yaml:"redis"`
	Kafka KafkaConfig       `yaml:"kafka"`
}

type ScheduleConfig struct {
	Cron     string `yaml:"cron" default:"30 15 * * 1-5"`
	Timezone string `yaml:"timezone" default:"Africa/Lagos"`
}

var validate = validator.New()

// Load reads defaults, then the YAML file at path (if any), then validates.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv is Load with environment variable overrides applied before validation.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	var c Config
	// defaults first so that explicit zero values in YAML (false, 0) win
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	c.Database.ApplyEnv()

	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		c.Redis.Addr = host + ":" + port
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("NGX_SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Notify.Slack.WebhookURL = v
		c.Notify.Slack.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = strings.Split(v, ",")
		c.Notify.Kafka.Enabled = true
	}
	if v := os.Getenv("PIPELINE_CODES"); v != "" {
		c.Pipeline.Codes = strings.Split(v, ",")
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Notify.Slack.Enabled && c.Notify.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("notify.slack.webhook_url is required when slack is enabled"))
	}
	if c.Notify.Kafka.Enabled && len(c.Notify.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("notify.kafka.brokers is required when kafka is enabled"))
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule.timezone: %w", err))
	}
	return errors.Join(errs...)
}
