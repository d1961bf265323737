package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/workspace"
)

// Config represents the ppd configuration
type Config struct {
	Pip     PipConfig     `mapstructure:"pip"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Analyze AnalyzeConfig `mapstructure:"analyze"`
	Resolve ResolveConfig `mapstructure:"resolve"`
}

// PipConfig contains package-manager settings
type PipConfig struct {
	Binary         string `mapstructure:"binary"`
	Python         string `mapstructure:"python"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OracleConfig contains reasoning-oracle settings
type OracleConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AnalyzeConfig contains analysis-loop settings
type AnalyzeConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// ResolveConfig contains resolution-loop settings
type ResolveConfig struct {
	MaxConsultations int    `mapstructure:"max_consultations"`
	RulesFile        string `mapstructure:"rules_file"`
}

// Load reads the config from the workspace
func Load(root string) (*Config, error) {
	return LoadFile(workspace.ConfigPath(root))
}

// LoadFile reads the config from an explicit path, falling back to
// defaults when the file does not exist
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Pip: PipConfig{
			Binary:         "pip",
			Python:         "python3",
			TimeoutSeconds: 300,
		},
		Oracle: OracleConfig{
			Model: "gpt-4o-mini",
		},
		Analyze: AnalyzeConfig{
			MaxRetries: 3,
		},
		Resolve: ResolveConfig{
			MaxConsultations: 8,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Pip.Binary == "" {
		cfg.Pip.Binary = defaults.Pip.Binary
	}
	if cfg.Pip.Python == "" {
		cfg.Pip.Python = defaults.Pip.Python
	}
	if cfg.Pip.TimeoutSeconds == 0 {
		cfg.Pip.TimeoutSeconds = defaults.Pip.TimeoutSeconds
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = defaults.Oracle.Model
	}
	if cfg.Analyze.MaxRetries == 0 {
		cfg.Analyze.MaxRetries = defaults.Analyze.MaxRetries
	}
	if cfg.Resolve.MaxConsultations == 0 {
		cfg.Resolve.MaxConsultations = defaults.Resolve.MaxConsultations
	}
}
