package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/macross/pkg/backtest"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Search     SearchConfig     `mapstructure:"search"`
	Bounds     BoundsConfig     `mapstructure:"bounds"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Data       DataConfig       `mapstructure:"data"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// SearchConfig contains genetic search settings
type SearchConfig struct {
	PopulationSize int           `mapstructure:"population_size"` // 50
	Generations    int           `mapstructure:"generations"`     // 50
	MutationRate   float64       `mapstructure:"mutation_rate"`   // 0.1
	Seed           int64         `mapstructure:"seed"`            // 0 = time based
	Parallelism    int           `mapstructure:"parallelism"`     // 0 = one worker per CPU
	Timeout        time.Duration `mapstructure:"timeout"`         // 0 = no timeout
}

// BoundsConfig contains the inclusive window length ranges
type BoundsConfig struct {
	MinShort int `mapstructure:"min_short"`
	MaxShort int `mapstructure:"max_short"`
	MinLong  int `mapstructure:"min_long"`
	MaxLong  int `mapstructure:"max_long"`
}

// StrategyConfig contains fitness evaluation settings
type StrategyConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"` // 10000.0
	Average        string  `mapstructure:"average"`         // "sma" or "ema"
}

// DataConfig describes the price series input
type DataConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // csv, json, yaml; empty = from extension
	Column string `mapstructure:"column"` // CSV column holding prices
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides, e.g. MACROSS_SEARCH_GENERATIONS
	v.SetEnvPrefix("MACROSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "macross")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	// Search defaults
	v.SetDefault("search.population_size", 50)
	v.SetDefault("search.generations", 50)
	v.SetDefault("search.mutation_rate", 0.1)
	v.SetDefault("search.seed", 0)
	v.SetDefault("search.parallelism", 0)
	v.SetDefault("search.timeout", "0s")

	// Bounds defaults
	v.SetDefault("bounds.min_short", 2)
	v.SetDefault("bounds.max_short", 250)
	v.SetDefault("bounds.min_long", 20)
	v.SetDefault("bounds.max_long", 500)

	// Strategy defaults
	v.SetDefault("strategy.initial_capital", backtest.DefaultInitialCapital)
	v.SetDefault("strategy.average", "sma")

	// Data defaults
	v.SetDefault("data.path", "")
	v.SetDefault("data.format", "")
	v.SetDefault("data.column", "close")

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", false)
}

// GetBounds converts the bounds section into search bounds
func (c *BoundsConfig) GetBounds() backtest.Bounds {
	return backtest.Bounds{
		MinShort: c.MinShort,
		MaxShort: c.MaxShort,
		MinLong:  c.MinLong,
		MaxLong:  c.MaxLong,
	}
}

// GetSearchConfig builds the search inputs from the configuration.
// A zero initial capital means backtest.DefaultInitialCapital, as in backtest.Search.
func (c *Config) GetSearchConfig() backtest.SearchConfig {
	initialCapital := c.Strategy.InitialCapital
	if initialCapital == 0 {
		initialCapital = backtest.DefaultInitialCapital
	}

	return backtest.SearchConfig{
		PopulationSize: c.Search.PopulationSize,
		Generations:    c.Search.Generations,
		Bounds:         c.Bounds.GetBounds(),
		MutationRate:   c.Search.MutationRate,
		InitialCapital: initialCapital,
		Seed:           c.Search.Seed,
		Parallelism:    c.Search.Parallelism,
	}
}
