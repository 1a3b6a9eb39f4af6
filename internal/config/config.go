package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"hmetrics/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Render RenderConfig
	Server ServerConfig
	Plot   PlotDefaults
	// StyleFile is the YAML file the plot defaults were read from, if any
	StyleFile string
}

// RenderConfig holds global rendering settings
type RenderConfig struct {
	DPI     int
	Style   string
	Context string
	Schema  string
	Seed    uint64
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// PlotDefaults are the per-call defaults a style file may override. Zero
// values leave the built-in defaults in place.
type PlotDefaults struct {
	Kind       string     `yaml:"kind"`
	ShowPoints string     `yaml:"show_points"`
	PAdjust    string     `yaml:"padjust"`
	Alpha      float64    `yaml:"alpha"`
	TextFormat string     `yaml:"text_format"`
	Error      string     `yaml:"error"`
	FigSize    [2]float64 `yaml:"figsize"`
}

// styleFile is the on-disk layout of HMETRICS_STYLE_FILE
type styleFile struct {
	Theme struct {
		Style   string `yaml:"style"`
		Context string `yaml:"context"`
		DPI     int    `yaml:"dpi"`
	} `yaml:"theme"`
	Plot PlotDefaults `yaml:"plot"`
}

// Load reads configuration from environment variables, merges the optional
// style file and validates the result
func Load() (*Config, error) {
	config := &Config{
		Render: *loadRenderConfig(),
		Server: *loadServerConfig(),
	}

	config.StyleFile = getEnvOrDefault("HMETRICS_STYLE_FILE", "")
	if config.StyleFile != "" {
		if err := config.MergeStyleFile(config.StyleFile); err != nil {
			return nil, errors.Wrap(err, "failed to load style file")
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadRenderConfig() *RenderConfig {
	return &RenderConfig{
		DPI:     getEnvIntOrDefault("HMETRICS_DPI", 300),
		Style:   getEnvOrDefault("HMETRICS_THEME", "whitegrid"),
		Context: getEnvOrDefault("HMETRICS_CONTEXT", "talk"),
		Schema:  getEnvOrDefault("HMETRICS_SCHEMA", "v1"),
		Seed:    uint64(getEnvIntOrDefault("HMETRICS_SEED", 1)),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         getEnvOrDefault("HMETRICS_ADDR", ":8080"),
		ReadTimeout:  getEnvDurationOrDefault("HMETRICS_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDurationOrDefault("HMETRICS_WRITE_TIMEOUT", 60*time.Second),
		MaxBodyBytes: int64(getEnvIntOrDefault("HMETRICS_MAX_BODY_MB", 32)) << 20,
	}
}

// MergeStyleFile overlays the theme and plot defaults found in a YAML file
func (c *Config) MergeStyleFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return c.MergeStyle(raw)
}

// MergeStyle overlays YAML style content
func (c *Config) MergeStyle(raw []byte) error {
	var sf styleFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("invalid style file: %v", err))
	}
	if sf.Theme.Style != "" {
		c.Render.Style = sf.Theme.Style
	}
	if sf.Theme.Context != "" {
		c.Render.Context = sf.Theme.Context
	}
	if sf.Theme.DPI != 0 {
		c.Render.DPI = sf.Theme.DPI
	}
	c.Plot = sf.Plot
	return nil
}

func validateConfig(config *Config) error {
	if config.Render.DPI <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("dpi must be positive, got %d", config.Render.DPI))
	}
	if config.Server.Addr == "" {
		return errors.ConfigInvalid("server address is required")
	}
	if a := config.Plot.Alpha; a < 0 || a >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("alpha must be in (0,1), got %v", a))
	}
	if config.Plot.FigSize[0] < 0 || config.Plot.FigSize[1] < 0 {
		return errors.ConfigInvalid("figsize must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
