package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"turbine-tuner/internal/discon"
	"turbine-tuner/internal/tuning"
	"turbine-tuner/internal/turbine"
)

// Config represents the complete configuration structure
type Config struct {
	Logging    LoggingConfig           `yaml:"logging"`
	Turbine    turbine.Params          `yaml:"turbine"`
	Controller tuning.ControllerConfig `yaml:"controller"`
	Output     OutputConfig            `yaml:"output"`
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// OutputConfig contains the destinations of the tuning results
type OutputConfig struct {
	ParamFile    string `yaml:"param_file"`     // DISCON parameter file to write
	PerfFileName string `yaml:"perf_file_name"` // Performance table name referenced by the parameter file
	WritePerf    bool   `yaml:"write_perf"`     // Also write the performance table next to the parameter file
	MetricsFile  string `yaml:"metrics_file"`   // Prometheus textfile for run metrics, empty to disable
}

// LoadConfig loads and parses the configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Set defaults for any missing values
	setDefaults(&config)

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for missing top-level fields. Controller
// tuning defaults are applied when the controller config is resolved.
func setDefaults(config *Config) {
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Turbine.Rho == 0 {
		config.Turbine.Rho = 1.225
	}
	if config.Turbine.GenEff == 0 {
		config.Turbine.GenEff = 1.0
	}
	if config.Output.ParamFile == "" {
		config.Output.ParamFile = "DISCON.IN"
	}
	if config.Output.PerfFileName == "" {
		config.Output.PerfFileName = discon.DefaultPerfFileName
	}
}

// Validate checks all configuration values for logical consistency
func (c *Config) Validate() error {
	if err := c.Turbine.Validate(); err != nil {
		return fmt.Errorf("turbine: %w", err)
	}
	if c.Turbine.PerformanceFile == "" {
		return fmt.Errorf("turbine: performance_file is required")
	}
	if _, err := c.Controller.Resolve(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of: debug, info, warn, error, got %s", c.Logging.Level)
	}

	return nil
}
