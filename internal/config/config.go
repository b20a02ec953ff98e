package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".tracekit.yaml"

// Config holds all tracekit configuration.
type Config struct {
	// Filter settings for `tracekit filter`
	Filter FilterConfig `yaml:"filter"`

	// Divergence settings for `tracekit diverge`
	Divergence DivergenceConfig `yaml:"divergence"`

	// Plot settings for `tracekit plot`
	Plot PlotConfig `yaml:"plot"`

	// Watch settings shared by follow and watch modes
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// FilterConfig configures the breakpoint line filter.
type FilterConfig struct {
	Marker  string `yaml:"marker"`  // literal line prefix
	Compact bool   `yaml:"compact"` // drop the blank line after each match
}

// DivergenceConfig configures the divergence finder.
type DivergenceConfig struct {
	SkipToken    string `yaml:"skip_token"`    // dump lines containing this are ignored
	ContextLines int    `yaml:"context_lines"` // addresses shown around a divergence, 0 disables
}

// PlotConfig configures the FOC path plotter.
type PlotConfig struct {
	Input  string  `yaml:"input"`
	Output string  `yaml:"output"`
	Radius float64 `yaml:"radius"`
	Width  float64 `yaml:"width"`  // inches
	Height float64 `yaml:"height"` // inches
	DPI    int     `yaml:"dpi"`
	Show   bool    `yaml:"show"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Filter: FilterConfig{
			Marker: "[bp]:",
		},
		Divergence: DivergenceConfig{
			SkipToken: "timestamp",
		},
		Plot: PlotConfig{
			Input:  "trace.foc.txt",
			Output: "foc.png",
			Radius: 0.8,
			Width:  20,
			Height: 8,
			DPI:    100,
			Show:   true,
		},
		Watch: WatchConfig{
			Debounce: "250ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(".tracekit", "logs"),
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still take env overrides
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TRACEKIT_MARKER"); v != "" {
		c.Filter.Marker = v
	}
	if v := os.Getenv("TRACEKIT_SKIP_TOKEN"); v != "" {
		c.Divergence.SkipToken = v
	}
	if v := os.Getenv("TRACEKIT_PLOT_INPUT"); v != "" {
		c.Plot.Input = v
	}
	if v := os.Getenv("TRACEKIT_PLOT_OUTPUT"); v != "" {
		c.Plot.Output = v
	}
	if v := os.Getenv("TRACEKIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TRACEKIT_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || strings.EqualFold(v, "true")
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Filter.Marker == "" {
		return fmt.Errorf("filter.marker must not be empty")
	}
	if c.Divergence.ContextLines < 0 {
		return fmt.Errorf("divergence.context_lines must be >= 0, got %d", c.Divergence.ContextLines)
	}
	if c.Plot.Input == "" || c.Plot.Output == "" {
		return fmt.Errorf("plot.input and plot.output are required")
	}
	if c.Plot.Radius <= 0 || c.Plot.Radius > 1 {
		return fmt.Errorf("plot.radius must be in (0, 1], got %g", c.Plot.Radius)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g", c.Plot.Width, c.Plot.Height)
	}
	if c.Plot.DPI <= 0 {
		return fmt.Errorf("plot.dpi must be positive, got %d", c.Plot.DPI)
	}

	valid := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}
