// Package config provides taskpacker settings, read from an optional YAML file,
// TASKPACKER_* environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. TASKPACKER_SOLVER_TIME_LIMIT.
const EnvPrefix = "TASKPACKER"

type Config struct {
	Solver SolverConfig `yaml:"solver" mapstructure:"solver"`
	Series SeriesConfig `yaml:"series" mapstructure:"series"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
}

type SolverConfig struct {
	TimeLimit    time.Duration `yaml:"time_limit" mapstructure:"time_limit"`
	UpperBound   int64         `yaml:"upper_bound" mapstructure:"upper_bound"`
	WindowPolicy string        `yaml:"window_policy" mapstructure:"window_policy" valid:"in(drop|keep)"`
	Optimize     bool          `yaml:"optimize" mapstructure:"optimize"`
}

type SeriesConfig struct {
	EstimatedProcessDuration int64         `yaml:"estimated_process_duration" mapstructure:"estimated_process_duration"`
	TimeLimitStep            time.Duration `yaml:"time_limit_step" mapstructure:"time_limit_step"`
	Trials                   int           `yaml:"trials" mapstructure:"trials"`
	GrowHorizonOnRetry       bool          `yaml:"grow_horizon_on_retry" mapstructure:"grow_horizon_on_retry"`
}

// StoreConfig selects where committed runs are kept. An empty DSN disables persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" valid:"in(sqlite|mysql)"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr" valid:"required"`
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			TimeLimit:    20 * time.Second,
			UpperBound:   500,
			WindowPolicy: "drop",
			Optimize:     true,
		},
		Series: SeriesConfig{
			EstimatedProcessDuration: 5000,
			Trials:                   2,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			BasePath: "/v0",
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse unmarshals YAML bytes on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetDefaults registers every key with viper, so environment variables
// are picked up by Unmarshal even when no file sets them.
func SetDefaults(v *viper.Viper) {
	cfg := Default()

	v.SetDefault("solver.time_limit", cfg.Solver.TimeLimit)
	v.SetDefault("solver.upper_bound", cfg.Solver.UpperBound)
	v.SetDefault("solver.window_policy", cfg.Solver.WindowPolicy)
	v.SetDefault("solver.optimize", cfg.Solver.Optimize)
	v.SetDefault("series.estimated_process_duration", cfg.Series.EstimatedProcessDuration)
	v.SetDefault("series.time_limit_step", cfg.Series.TimeLimitStep)
	v.SetDefault("series.trials", cfg.Series.Trials)
	v.SetDefault("series.grow_horizon_on_retry", cfg.Series.GrowHorizonOnRetry)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.dsn", cfg.Store.DSN)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.base_path", cfg.Server.BasePath)
}

// BindEnv makes TASKPACKER_SOLVER_TIME_LIMIT override solver.time_limit.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper resolves the configuration from everything viper knows:
// defaults, config file, environment and bound flags.
func FromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Solver.TimeLimit < 0 {
		return fmt.Errorf("config: solver.time_limit must not be negative")
	}

	if c.Solver.UpperBound <= 0 {
		return fmt.Errorf("config: solver.upper_bound must be positive")
	}

	if c.Series.EstimatedProcessDuration <= 0 {
		return fmt.Errorf("config: series.estimated_process_duration must be positive")
	}

	if c.Series.Trials < 1 {
		return fmt.Errorf("config: series.trials must be at least 1")
	}

	if c.Series.TimeLimitStep < 0 {
		return fmt.Errorf("config: series.time_limit_step must not be negative")
	}

	return nil
}
