package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/mazrean/renketsu/internal/renketsu"
)

// Settings are the engine options read from renketsu.yaml and RENKETSU_*
// environment variables.
type Settings struct {
	TieBreak      string   `mapstructure:"tie_break"`
	StateFamilies []string `mapstructure:"state_families"`
	StateSuffixes []string `mapstructure:"state_suffixes"`
	Profiles      []string `mapstructure:"profiles"`
	Concurrency   int      `mapstructure:"concurrency"`
}

// LoadSettings reads path, or renketsu.yaml in the working directory when
// path is empty. A missing default file is not an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()

	defaults := renketsu.DefaultStateFamilies()
	v.SetDefault("tie_break", "first")
	v.SetDefault("state_families", defaults.Names)
	v.SetDefault("state_suffixes", defaults.Suffixes)
	v.SetDefault("profiles", []string{})
	v.SetDefault("concurrency", 0)

	v.SetEnvPrefix("RENKETSU")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("renketsu")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	} else {
		slog.Debug("Loaded settings", "file", v.ConfigFileUsed())
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	return &s, nil
}

// EngineOptions converts the settings into engine options.
func (s *Settings) EngineOptions() ([]renketsu.Option, error) {
	policy, err := renketsu.ParseTieBreaker(s.TieBreak, s.Profiles)
	if err != nil {
		return nil, err
	}

	return []renketsu.Option{
		renketsu.WithTieBreaker(policy),
		renketsu.WithStateFamilies(renketsu.StateFamilies{
			Names:    s.StateFamilies,
			Suffixes: s.StateSuffixes,
		}),
		renketsu.WithConcurrency(s.Concurrency),
	}, nil
}
