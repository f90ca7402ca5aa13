// Package config loads the framework configuration from a YAML file with
// COMMONGO_ environment variable overrides, e.g. COMMONGO_DATABASE_HOST
// overrides database.host.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/zosbridge/commongo/pkg/manager"
	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// Config is the root configuration document.
type Config struct {
	LogLevel  string                 `mapstructure:"log_level"`
	Database  manager.ResourceConfig `mapstructure:"database"`
	Messaging manager.ResourceConfig `mapstructure:"messaging"`
}

const envPrefix = "COMMONGO"

// Load reads configuration from path. An empty path searches for
// commongo.yaml in the working directory and under /etc/commongo. A missing
// file is not an error when the path was not explicit; environment overrides
// and defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("commongo")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/commongo")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects implementation selectors the factory would refuse, so a
// bad file fails at load time rather than at the first create call.
func (c *Config) Validate() error {
	sections := []struct {
		kind rescapabilities.ResourceKind
		cfg  manager.ResourceConfig
	}{
		{rescapabilities.DB2, c.Database},
		{rescapabilities.IBMMQ, c.Messaging},
	}
	for _, s := range sections {
		switch s.cfg.ImplementationOrDefault() {
		case manager.ImplementationCLI, manager.ImplementationLibrary:
		default:
			return manager.NewConfigurationError(s.kind, "implementation",
				fmt.Sprintf("unknown implementation %q: valid options are %q or %q",
					s.cfg.Implementation, manager.ImplementationCLI, manager.ImplementationLibrary))
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.implementation", string(manager.ImplementationCLI))
	v.SetDefault("database.timeout", manager.DefaultTimeoutSeconds)
	v.SetDefault("messaging.host", "localhost")
	v.SetDefault("messaging.queue_manager", "QM1")
	v.SetDefault("messaging.channel", "SYSTEM.DEF.SVRCONN")
	v.SetDefault("messaging.implementation", string(manager.ImplementationCLI))
	v.SetDefault("messaging.timeout", manager.DefaultTimeoutSeconds)
}
