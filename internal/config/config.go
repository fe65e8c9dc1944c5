// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		DSN string `mapstructure:"dsn" yaml:"-"` // never serialize credentials
	} `mapstructure:"database" yaml:"database"`

	Import struct {
		MemberSuffix string `mapstructure:"member_suffix" yaml:"member_suffix"`
	} `mapstructure:"import" yaml:"import"`
}

// Load initializes Viper configuration with hierarchical loading:
// defaults, then an optional config file, then environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.alipay-ledger")
	v.AddConfigPath(".alipay-ledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ALIPAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The connection string is always read from the environment, unprefixed,
	// so the standard libpq variable keeps working.
	if err := v.BindEnv("database.dsn", "DATABASE_URL", "ALIPAY_DATABASE_DSN"); err != nil {
		fmt.Printf("Warning: failed to bind DATABASE_URL environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.dsn", "")

	v.SetDefault("import.member_suffix", ".txt")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Import.MemberSuffix == "" {
		return fmt.Errorf("import.member_suffix must not be empty")
	}

	return nil
}
