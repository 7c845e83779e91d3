package config

import (
	"strings"

	"github.com/logcraftio/logcraft-cli/internal/domain"
	"github.com/spf13/viper"
)

// Load reads `lgc.toml` from path (or the default search path when path is
// empty), applies ${ENV_VAR} substitution, and decodes it into a Config,
// following the `AddConfigPath`/`SetConfigName`/`AutomaticEnv` wiring the
// teacher's CLI entry point uses for its own config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LGC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &domain.ConfigError{Path: path, Reason: err.Error()}
		}
	} else {
		v.SetConfigName("lgc")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.logcraft-cli")
		if err := v.ReadInConfig(); err != nil {
			return nil, &domain.ConfigError{Path: "lgc.toml", Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &domain.ConfigError{Path: v.ConfigFileUsed(), Reason: err.Error()}
	}

	if err := substituteConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DomainServices returns the decoded services as domain.Service values, each
// carrying its configured identifier as ID.
func (c *Config) DomainServices() []domain.Service {
	out := make([]domain.Service, 0, len(c.Services))
	for id, svc := range c.Services {
		out = append(out, domain.Service{
			ID:          id,
			Plugin:      svc.Plugin,
			Environment: svc.Environment,
			Settings:    svc.Settings,
		})
	}
	return out
}
