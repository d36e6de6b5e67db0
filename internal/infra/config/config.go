package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jose-valero/psforever-bot/internal/infra/docstore"
)

type Config struct {
	DiscordToken string        `mapstructure:"discord_token" validate:"required"`
	ChannelID    string        `mapstructure:"bot_channel_id" validate:"required|regex:^[0-9]+$"`
	MinPlayers   int           `mapstructure:"bot_min_players" validate:"required|min:1"`
	QuorumExpiry time.Duration `mapstructure:"bot_quorum_expiry" validate:"min:1"`

	StatsBaseURL  string        `mapstructure:"stats_base_url" validate:"required|fullUrl"`
	StatsInterval time.Duration `mapstructure:"stats_interval" validate:"min:1"`

	StorageDriver string `mapstructure:"storage_driver" validate:"required|in:postgres,sqlite,memory"`
	DatabaseURL   string `mapstructure:"database_url"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	StoragePrefix string `mapstructure:"storage_prefix"`
	AppEnv        string `mapstructure:"app_env"`
	FlushPolicy   string `mapstructure:"flush_policy" validate:"in:debounce,throttle"`

	// FlushInterval aplica a la política elegida
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"min:1"`

	ReportChannelID string        `mapstructure:"report_channel_id"`
	SetupTimeout    time.Duration `mapstructure:"setup_timeout" validate:"min:1"`
	AlertDMRate     float64       `mapstructure:"alert_dm_rate"`

	HTTPAddr       string `mapstructure:"http_addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	DMCacheMB      int    `mapstructure:"dm_cache_mb" validate:"min:0"`

	LogLevel  string `mapstructure:"log_level" validate:"in:trace,debug,info,warn,error"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

var defaults = map[string]any{
	"discord_token":     "",
	"bot_channel_id":    "",
	"bot_min_players":   20,
	"bot_quorum_expiry": 2 * time.Hour,
	"stats_base_url":    "https://play.psforever.net",
	"stats_interval":    time.Minute,
	"storage_driver":    "sqlite",
	"database_url":      "",
	"sqlite_path":       "data/bot.db",
	"storage_prefix":    "",
	"app_env":           "",
	"flush_policy":      "debounce",
	"flush_interval":    10 * time.Second,
	"report_channel_id": "",
	"setup_timeout":     5 * time.Minute,
	"alert_dm_rate":     1.0,
	"http_addr":         ":8080",
	"metrics_enabled":   true,
	"dm_cache_mb":       1,
	"log_level":         "info",
	"log_pretty":        false,
}

// Load lee .env (si existe) y luego el entorno. Las variables del entorno ganan sobre .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FlushPolicy = strings.ToLower(strings.TrimSpace(cfg.FlushPolicy))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = cfg.AppEnv
	}
	if cfg.StoragePrefix == "" {
		cfg.StoragePrefix = "development"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	if c.StorageDriver == "postgres" && c.DatabaseURL == "" {
		return errors.New("invalid config: DATABASE_URL is required for the postgres driver")
	}
	return nil
}

func (c Config) Flush() (docstore.Policy, error) {
	return docstore.ParsePolicy(c.FlushPolicy, c.FlushInterval)
}
