// Package config assembles the bot's runtime configuration from the
// environment.
package config

import (
	"time"

	"throp/pkg/config"
)

// Config is everything the bot needs to run.
type Config struct {
	// HTTP boundary
	ListenAddr string

	// Platform API
	PlatformAPIURL  string
	BearerToken     string
	BotUserID       string
	Tier            string
	DryRun          bool
	TrendRegion     string

	// Mention monitor
	MonitorEnabled    bool
	CheckInterval     time.Duration
	FetchBatch        int
	Accounts          []string
	Keywords          []string
	MinEngagement     int
	MaxActionsPerHour int
	MaxMentionAge     time.Duration

	// State store
	RedisURL string

	// Post history
	DatabaseURL string

	// Price tool
	PriceAPIURL string
}

// Load reads configuration from the environment with sane defaults.
// Credentials are not validated here; missing ones surface through health
// checks and disabled features at wiring time.
func Load() Config {
	return Config{
		ListenAddr: config.GetEnv("LISTEN_ADDR", ":8080"),

		PlatformAPIURL: config.GetEnv("PLATFORM_API_URL", ""),
		BearerToken:    config.GetEnv("PLATFORM_BEARER_TOKEN", ""),
		BotUserID:      config.GetEnv("PLATFORM_BOT_USER_ID", ""),
		Tier:           config.GetEnv("PLATFORM_TIER", "free"),
		DryRun:         config.GetEnvBool("DRY_RUN", false),
		TrendRegion:    config.GetEnv("TREND_REGION", "1"),

		MonitorEnabled:    config.GetEnvBool("MONITOR_ENABLED", true),
		CheckInterval:     config.GetEnvDuration("MONITOR_CHECK_INTERVAL", 2*time.Minute),
		FetchBatch:        config.GetEnvInt("MONITOR_FETCH_BATCH", 25),
		Accounts:          config.GetEnvList("MONITOR_ACCOUNTS"),
		Keywords:          config.GetEnvList("MONITOR_KEYWORDS"),
		MinEngagement:     config.GetEnvInt("MONITOR_MIN_ENGAGEMENT", 0),
		MaxActionsPerHour: config.GetEnvInt("MONITOR_MAX_ACTIONS_PER_HOUR", 30),
		MaxMentionAge:     config.GetEnvDuration("MONITOR_MAX_MENTION_AGE", 24*time.Hour),

		RedisURL:    config.GetEnv("REDIS_URL", ""),
		DatabaseURL: config.GetEnv("DATABASE_URL", ""),
		PriceAPIURL: config.GetEnv("PRICE_API_URL", ""),
	}
}
