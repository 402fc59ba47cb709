// Package config loads OPTEEE toolkit configuration from a TOML file and
// environment variables, exposing typed structs and accessors for all
// sections.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the runtime configuration loaded from defaults, config.toml, and
// env vars.
type Config struct {
	// HomeDir is runtime-resolved from OPTEEE_HOME and not read from config.
	HomeDir  string                   `mapstructure:"-"`
	API      APIConfig                `mapstructure:"api"`
	Channels map[string]ChannelConfig `mapstructure:"channels"`
	Store    StoreConfig              `mapstructure:"store"`
	Doctor   DoctorConfig             `mapstructure:"doctor"`
	History  HistoryConfig            `mapstructure:"history"`
	Health   HealthConfig             `mapstructure:"health"`
}

// APIConfig points the toolkit at one OPTEEE bot-API deployment.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Provider       string        `mapstructure:"provider"`
	NumResults     int           `mapstructure:"num_results"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ChannelConfig configures one inbound/outbound channel.
type ChannelConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// StoreConfig configures vector-store packaging and retrieval.
type StoreConfig struct {
	URL string `mapstructure:"url"`
	Dir string `mapstructure:"dir"`
}

// DoctorConfig configures connectivity diagnostics.
type DoctorConfig struct {
	Nameservers []string `mapstructure:"nameservers"`
}

// HistoryConfig controls local conversation-context assembly.
type HistoryConfig struct {
	RecentMessages int `mapstructure:"recent_messages"`
}

// HealthConfig controls the periodic API health monitor.
type HealthConfig struct {
	Schedule   string `mapstructure:"schedule"`
	AlertAfter int    `mapstructure:"alert_after"`
}

var defaultConfig = Config{
	API: APIConfig{
		BaseURL:        "https://bthaile-opteee.hf.space",
		Provider:       "claude",
		NumResults:     5,
		RequestTimeout: 30 * time.Second,
	},
	Channels: map[string]ChannelConfig{
		"telegram": {
			Enabled: false,
			Token:   "",
		},
	},
	Store: StoreConfig{
		URL: "",
		Dir: "vector_store",
	},
	Doctor: DoctorConfig{
		Nameservers: []string{"8.8.8.8", "1.1.1.1"},
	},
	History: HistoryConfig{
		RecentMessages: 10,
	},
	Health: HealthConfig{
		Schedule:   "@every 5m",
		AlertAfter: 3,
	},
}

// homeDir returns the toolkit home directory.
// Uses OPTEEE_HOME env var if set, otherwise defaults to ~/.opteee.
func homeDir() (string, error) {
	if dir := os.Getenv("OPTEEE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return defaultHomePath(home), nil
}

// Load merges hardcoded defaults and config file values in that order.
// Config is always at $OPTEEE_HOME/config.toml.
func Load() (*Config, error) {
	homeDir, err := homeDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = homeDir

	return &cfg, nil
}

// Write writes the merged configuration (defaults overlaid by user config)
// to w in TOML format.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	homeDir, err := homeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	// Keep duration fields human-readable in generated TOML.
	v.Set("api.request_timeout", v.GetDuration("api.request_timeout").String())

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", defaultConfig.API.BaseURL)
	v.SetDefault("api.provider", defaultConfig.API.Provider)
	v.SetDefault("api.num_results", defaultConfig.API.NumResults)
	v.SetDefault("api.request_timeout", defaultConfig.API.RequestTimeout)

	v.SetDefault("channels.telegram.enabled", defaultConfig.Channels["telegram"].Enabled)
	v.SetDefault("channels.telegram.token", defaultConfig.Channels["telegram"].Token)

	v.SetDefault("store.url", defaultConfig.Store.URL)
	v.SetDefault("store.dir", defaultConfig.Store.Dir)

	v.SetDefault("doctor.nameservers", defaultConfig.Doctor.Nameservers)

	v.SetDefault("history.recent_messages", defaultConfig.History.RecentMessages)

	v.SetDefault("health.schedule", defaultConfig.Health.Schedule)
	v.SetDefault("health.alert_after", defaultConfig.Health.AlertAfter)
}

// TelegramChannel returns Telegram channel config with fallback defaults.
func (c *Config) TelegramChannel() ChannelConfig {
	if ch, ok := c.Channels["telegram"]; ok {
		return ch
	}
	return defaultConfig.Channels["telegram"]
}

// Validate checks required API fields.
func (c APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("base_url is not a valid URL: %w", err)
	}
	if c.NumResults <= 0 {
		return errors.New("num_results must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	return nil
}

// Validate checks required channel fields when the channel is enabled.
func (c ChannelConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Token == "" {
		return errors.New("token is required when enabled=true")
	}
	return nil
}

// Validate checks vector-store settings.
func (c StoreConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	return nil
}

// Validate checks diagnostic settings.
func (c DoctorConfig) Validate() error {
	if len(c.Nameservers) == 0 {
		return errors.New("at least one nameserver is required")
	}
	return nil
}

// Validate checks history settings.
func (c HistoryConfig) Validate() error {
	if c.RecentMessages < 0 {
		return errors.New("recent_messages must be >= 0")
	}
	return nil
}

// Validate checks health monitor settings.
func (c HealthConfig) Validate() error {
	if c.Schedule == "" {
		return errors.New("schedule is required")
	}
	if c.AlertAfter <= 0 {
		return errors.New("alert_after must be > 0")
	}
	return nil
}

// Validate validates startup configuration and returns the first fatal error.
func (cfg *Config) Validate() error {
	if err := cfg.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := cfg.Doctor.Validate(); err != nil {
		return fmt.Errorf("doctor: %w", err)
	}
	if err := cfg.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := cfg.Health.Validate(); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	for name, chCfg := range cfg.Channels {
		if err := chCfg.Validate(); err != nil {
			return fmt.Errorf("channels.%s: %w", name, err)
		}
	}
	return nil
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
