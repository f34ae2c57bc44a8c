// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"telegram-style-bot/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | webhook (future)
	Username string  `yaml:"username"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type OpsConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type AIConfig struct {
	GeminiKey string `yaml:"gemini_key"`
	GeminiURL string `yaml:"gemini_url"`
	OpenAIKey string `yaml:"openai_key"`
	Model     string `yaml:"model"`
}

type PaymentConfig struct {
	YooKassa struct {
		ShopID    string `yaml:"shop_id"`
		SecretKey string `yaml:"secret_key"`
		ReturnURL string `yaml:"return_url"`
	} `yaml:"yookassa"`
}

type PricingConfig struct {
	Packs         []model.TokenPack `yaml:"packs"`
	WelcomeTokens int               `yaml:"welcome_tokens"`
}

type TrackerConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`  // gateway poll cadence per intent
	MaxAttempts   int           `yaml:"max_attempts"`   // polls before the intent expires
	SweepInterval time.Duration `yaml:"sweep_interval"` // janitor cadence
	Retention     time.Duration `yaml:"retention"`      // how long resolved/expired intents stay in memory
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Ops      OpsConfig      `yaml:"ops"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Payment  PaymentConfig  `yaml:"payment"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Tracker  TrackerConfig  `yaml:"tracker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 8080
	}
	if cfg.Redis.SessionTTL <= 0 {
		cfg.Redis.SessionTTL = 15 * time.Minute
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash-preview-image-generation"
	}
	if cfg.Tracker.PollInterval <= 0 {
		cfg.Tracker.PollInterval = 30 * time.Second
	}
	if cfg.Tracker.MaxAttempts <= 0 {
		cfg.Tracker.MaxAttempts = 60
	}
	if cfg.Tracker.SweepInterval <= 0 {
		cfg.Tracker.SweepInterval = 30 * time.Minute
	}
	if cfg.Tracker.Retention <= 0 {
		cfg.Tracker.Retention = time.Hour
	}
	if len(cfg.Pricing.Packs) == 0 {
		cfg.Pricing.Packs = []model.TokenPack{
			{Tokens: 150, Price: 990},
			{Tokens: 350, Price: 1990},
			{Tokens: 800, Price: 3990},
		}
	}
	if cfg.Pricing.WelcomeTokens < 0 {
		cfg.Pricing.WelcomeTokens = 0
	}

	// Minimal validation
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if !dev && cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("ai.gemini_key or ai.openai_key is required")
	}
	for _, p := range cfg.Pricing.Packs {
		if p.Tokens <= 0 || p.Price <= 0 {
			return nil, fmt.Errorf("pricing pack %d/%d is invalid", p.Tokens, p.Price)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
