// Package config provides configuration loading and management for stormfit.
// It handles loading configuration from YAML files and provides default values
// taken from the constants table.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"stormfit/pkg/definitions"
	"stormfit/pkg/launch"
)

// ErrInvalidConfig is returned when a configuration breaks the limits of the
// constants table
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Fitting parameters
	Fitting struct {
		// Model is the name of the MLE variant (no_background, standard, sigma, sigma_xy)
		Model string `yaml:"model"`

		// WindowSize is the side length of each fitting window in pixels
		WindowSize int `yaml:"windowSize"`
	} `yaml:"fitting"`

	// Kernel launch parameters
	Launch struct {
		// ThreadsPerBlock is capped by definitions.BlockSize
		ThreadsPerBlock int `yaml:"threadsPerBlock"`

		// BlocksPerKernel is the number of blocks per kernel invocation
		BlocksPerKernel int `yaml:"blocksPerKernel"`

		// NumCores specifies how many CPU cores execute blocks
		NumCores int `yaml:"numCores"`
	} `yaml:"launch"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// SaveWindows writes the extracted windows as JPEG files
		SaveWindows bool `yaml:"saveWindows"`

		// WindowDir is where extracted windows are written
		WindowDir string `yaml:"windowDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Fitting.Model = definitions.Standard.String()
	cfg.Fitting.WindowSize = 7

	cfg.Launch.ThreadsPerBlock = definitions.BlockSize
	cfg.Launch.BlocksPerKernel = definitions.NumKernelBlocks
	cfg.Launch.NumCores = runtime.NumCPU()

	cfg.Output.Verbose = true
	cfg.Output.SaveWindows = false
	cfg.Output.WindowDir = "windows"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults so omitted keys keep their default values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Reject values the kernels cannot be launched or sized with
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks the configuration against the constants table.
// Every error it returns matches ErrInvalidConfig.
func (c *Config) Validate() error {
	model, err := c.Model()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !model.Used() {
		return fmt.Errorf("%w: fitting model %s has no kernel", ErrInvalidConfig, model)
	}

	if c.Fitting.WindowSize < 1 || c.Fitting.WindowSize > definitions.ImageSizeBig {
		return fmt.Errorf("%w: window size %d not in [1, %d]",
			ErrInvalidConfig, c.Fitting.WindowSize, definitions.ImageSizeBig)
	}

	if err := c.LaunchConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Model resolves the configured fitting model
func (c *Config) Model() (definitions.Model, error) {
	return definitions.ParseModel(c.Fitting.Model)
}

// LaunchConfig converts the launch section for the launch package
func (c *Config) LaunchConfig() launch.Config {
	return launch.Config{
		ThreadsPerBlock: c.Launch.ThreadsPerBlock,
		BlocksPerKernel: c.Launch.BlocksPerKernel,
		NumCores:        c.Launch.NumCores,
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
