// Package config loads runtime configuration for the timeline tagger.
// Values come from .timeline-tagger.yaml, TAGGER_* environment variables and
// CLI flags, in increasing order of precedence.
package config

import (
	"github.com/spf13/viper"

	"github.com/kylebrothers/NCRI-Timelines/tagger"
)

// Config holds all runtime configuration for a tagging session.
type Config struct {
	DataDir             string  `mapstructure:"data_dir"`
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	AutoSelectThreshold float64 `mapstructure:"auto_select_threshold"`
	MaxFeatures         int     `mapstructure:"max_features"`
	MaxIterations       int     `mapstructure:"max_iterations"`
	PastWindowYears     int     `mapstructure:"past_window_years"`
	Verbose             bool    `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("data_dir", "server_files/comment_tagger")
	viper.SetDefault("top_k", 5)
	viper.SetDefault("similarity_threshold", 0.05)
	viper.SetDefault("auto_select_threshold", 0.7)
	viper.SetDefault("max_features", 100)
	viper.SetDefault("max_iterations", 100)
	viper.SetDefault("past_window_years", 10)
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Tagger converts the app configuration into the core library configuration.
func (c Config) Tagger() tagger.Config {
	return tagger.Config{
		TopK:                c.TopK,
		SimilarityThreshold: c.SimilarityThreshold,
		AutoSelectThreshold: c.AutoSelectThreshold,
		MaxFeatures:         c.MaxFeatures,
		MaxIterations:       c.MaxIterations,
		PastWindowYears:     c.PastWindowYears,
		DataDir:             c.DataDir,
	}
}
