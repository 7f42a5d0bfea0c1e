// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gamification-bot/internal/model"
	"gamification-bot/internal/ratelimit"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Timezone  string          `mapstructure:"timezone"`
	XP        XPConfig        `mapstructure:"xp"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// XPConfig maps activities to the XP they award.
type XPConfig struct {
	Rewards map[string]int64 `mapstructure:"rewards"`
}

// ActionLimit is the configured rate limit for one action.
type ActionLimit struct {
	Cooldown   time.Duration `mapstructure:"cooldown"`
	DailyLimit int           `mapstructure:"daily_limit"`
}

// RateLimitConfig holds per-action limits and cooldown cache housekeeping.
type RateLimitConfig struct {
	Actions       map[string]ActionLimit `mapstructure:"actions"`
	PruneInterval time.Duration          `mapstructure:"prune_interval"`
	MaxAge        time.Duration          `mapstructure:"max_age"`
}

// NotifyConfig selects the progression event sinks.
type NotifyConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// KafkaConfig enables the Kafka sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TelegramConfig toggles private-message notifications.
type TelegramConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_DRIVER, NOTIFY_KAFKA_TOPIC
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gamebot")
	v.SetDefault("database.name", "gamebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("timezone", "UTC")

	v.SetDefault("xp.rewards", map[string]any{
		string(model.ActivityDailyCheckin):  10,
		string(model.ActivityChatMessage):   1,
		string(model.ActivityCreatePost):    20,
		string(model.ActivityCreateComment): 5,
		string(model.ActivityLikePost):      1,
		string(model.ActivityCreateProject): 50,
		string(model.ActivityJoinTeam):      25,
		string(model.ActivityLeaveTeam):     -25,
		string(model.ActivityAttendEvent):   30,
	})

	v.SetDefault("ratelimit.actions", map[string]any{
		"checkin":                           map[string]any{"cooldown": "0s", "daily_limit": 1},
		string(model.ActivityChatMessage):   map[string]any{"cooldown": "60s", "daily_limit": 50},
		string(model.ActivityCreatePost):    map[string]any{"cooldown": "5m", "daily_limit": 10},
		string(model.ActivityCreateComment): map[string]any{"cooldown": "30s", "daily_limit": 50},
		string(model.ActivityLikePost):      map[string]any{"cooldown": "5s", "daily_limit": 100},
	})
	v.SetDefault("ratelimit.prune_interval", "1h")
	v.SetDefault("ratelimit.max_age", "24h")

	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("notify.kafka.topic", "gamification.progression")
	v.SetDefault("notify.telegram.enabled", true)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	for action, limit := range c.RateLimit.Actions {
		if limit.Cooldown < 0 {
			return fmt.Errorf("ratelimit.actions.%s: negative cooldown", action)
		}
	}
	return nil
}

// Location returns the timezone that defines calendar days.
// Invalid or empty names fall back to UTC.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RuleFor returns the rate limit for action. Unconfigured actions are unlimited.
func (c *Config) RuleFor(action string) ratelimit.Rule {
	limit, ok := c.RateLimit.Actions[strings.ToLower(action)]
	if !ok {
		return ratelimit.Rule{}
	}
	return ratelimit.Rule{Cooldown: limit.Cooldown, DailyLimit: limit.DailyLimit}
}

// RewardFor returns the XP awarded for activity and whether it is configured.
func (c *Config) RewardFor(activity model.Activity) (int64, bool) {
	xp, ok := c.XP.Rewards[strings.ToLower(string(activity))]
	return xp, ok
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
