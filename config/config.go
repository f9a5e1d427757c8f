package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`

	// Database configuration
	DatabaseURL string `env:"DATABASE_URL"`

	// Economy configuration
	StartingBalance     int64 `env:"STARTING_BALANCE" envDefault:"1000"`
	DailyGrantThreshold int64 `env:"DAILY_GRANT_THRESHOLD" envDefault:"100"`
	DailyGrantAmount    int64 `env:"DAILY_GRANT_AMOUNT" envDefault:"20"`

	// Meeting configuration
	ReminderLead     time.Duration `env:"REMINDER_LEAD" envDefault:"5m"`
	WarningCalloutAt int           `env:"WARNING_CALLOUT_AT" envDefault:"2"`

	// Trigger dispatcher configuration
	DispatchPollInterval time.Duration `env:"DISPATCH_POLL_INTERVAL" envDefault:"15s"`
	DispatchWorkers      int           `env:"DISPATCH_WORKERS" envDefault:"4"`
	TriggerMaxAttempts   int           `env:"TRIGGER_MAX_ATTEMPTS" envDefault:"5"`
	TriggerRetryBase     time.Duration `env:"TRIGGER_RETRY_BASE" envDefault:"30s"`

	// External collaborator timeouts
	ExternalTimeout time.Duration `env:"EXTERNAL_TIMEOUT" envDefault:"10s"`

	// Match feed configuration
	FeedBaseURL  string `env:"FEED_BASE_URL" envDefault:"https://vlrggapi.vercel.app"`
	FeedPollSpec string `env:"FEED_POLL_SPEC" envDefault:"@every 1m"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DispatchWorkers < 1 {
		return nil, fmt.Errorf("DISPATCH_WORKERS must be at least 1")
	}
	if cfg.TriggerMaxAttempts < 1 {
		return nil, fmt.Errorf("TRIGGER_MAX_ATTEMPTS must be at least 1")
	}

	return &cfg, nil
}
