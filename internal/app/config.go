package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	// LogLevel controls logging verbosity: DEBUG, INFO, WARN or ERROR.
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`

	// StateFile is where the playlist snapshot is persisted between
	// sessions. Empty keeps state in memory only.
	StateFile string `mapstructure:"state_file"`

	// PollInterval is the playback position poll cadence.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// QueueWorkers bounds the audiobook materialization queue.
	QueueWorkers int `mapstructure:"queue_workers"`

	// ContinuousPlay advances audiobooks across part boundaries.
	ContinuousPlay bool `mapstructure:"continuous_play"`

	// UseMockGraph swaps the real audio output for the mock graph. Used by
	// tests and machines without an audio device.
	UseMockGraph bool `mapstructure:"use_mock_graph"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "INFO",
		LogFormat:      "text",
		StateFile:      "",
		PollInterval:   500 * time.Millisecond,
		QueueWorkers:   50,
		ContinuousPlay: true,
	}
}

// LoadConfig reads configuration from an optional hark.yaml (current
// directory, then ~/.config/hark), overridden by HARK_* environment
// variables. A missing config file is not an error.
func LoadConfig(configDir string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("state_file", defaults.StateFile)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("queue_workers", defaults.QueueWorkers)
	v.SetDefault("continuous_play", defaults.ContinuousPlay)
	v.SetDefault("use_mock_graph", defaults.UseMockGraph)

	v.SetConfigName("hark")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(filepath.Join("$HOME", ".config", "hark"))

	v.SetEnvPrefix("HARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
