package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/verify"
	"github.com/spf13/viper"
)

// Config is the driver configuration
type Config struct {
	Size       int           `mapstructure:"size"`
	Runs       int           `mapstructure:"runs"`
	Device     string        `mapstructure:"device"`
	Verify     bool          `mapstructure:"verify"`
	Threshold  float64       `mapstructure:"threshold"`
	Workers    int           `mapstructure:"workers"`
	QueueDepth int           `mapstructure:"queue_depth"`
	Log        LoggingConfig `mapstructure:"log"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Size:       1024,
		Runs:       1,
		Device:     "host",
		Verify:     true,
		Threshold:  verify.DefaultThreshold,
		Workers:    0,
		QueueDepth: runner.DefaultQueueDepth,
		Log: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// LoadConfig loads configuration from defaults, an optional file and
// KERNELBENCH_ environment variables. With an empty path, kernelbench.yaml
// is looked up in the working directory and may be absent.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("kernelbench")
	}

	v.SetEnvPrefix("KERNELBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Runs)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %g", c.Threshold)
	}
	if c.Device == "" {
		return errors.New("device cannot be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of: %v", validLevels)
	}
	return nil
}

// Settings returns the verification policy for benchmark cases
func (c *Config) Settings() verify.Settings {
	return verify.Settings{
		Threshold: c.Threshold,
		Report:    verify.LogMismatch,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("size", cfg.Size)
	v.SetDefault("runs", cfg.Runs)
	v.SetDefault("device", cfg.Device)
	v.SetDefault("verify", cfg.Verify)
	v.SetDefault("threshold", cfg.Threshold)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("queue_depth", cfg.QueueDepth)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.console", cfg.Log.Console)
}
