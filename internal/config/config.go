// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Coverage() CoverageConfig
	Report() ReportConfig

	// Coverage Setters
	SetCoverageConcurrency(int)
	SetCoverageOnMalformed(schemas.MalformedPolicy)
	SetCoverageIncludeAnonymous(bool)

	// Report Setters
	SetReportFormat(string)
	SetReportOutput(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	CoverageCfg CoverageConfig `mapstructure:"coverage" yaml:"coverage"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Coverage() CoverageConfig { return c.CoverageCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetCoverageConcurrency(n int) { c.CoverageCfg.Concurrency = n }
func (c *Config) SetCoverageOnMalformed(p schemas.MalformedPolicy) {
	c.CoverageCfg.OnMalformed = p
}
func (c *Config) SetCoverageIncludeAnonymous(b bool) { c.CoverageCfg.IncludeAnonymous = b }

func (c *Config) SetReportFormat(f string) { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(p string) { c.ReportCfg.Output = p }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// CoverageConfig tunes capture decoding and the flatten pipeline.
type CoverageConfig struct {
	// Concurrency is the number of URLs flattened in parallel.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// OnMalformed decides whether a malformed URL aborts the run or is skipped.
	OnMalformed schemas.MalformedPolicy `mapstructure:"on_malformed" yaml:"on_malformed"`
	// IncludeAnonymous keeps scripts that have no URL.
	IncludeAnonymous bool `mapstructure:"include_anonymous" yaml:"include_anonymous"`
}

// ReportConfig selects how the flattened result is handed off.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is a file path; empty or "stdout" writes to standard output.
	Output string `mapstructure:"output" yaml:"output"`
}

// ReportFormats lists the formats the reporting package understands.
var ReportFormats = []string{"json", "json-envelope"}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "covsweep")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Coverage --
	v.SetDefault("coverage.concurrency", 1)
	v.SetDefault("coverage.on_malformed", string(schemas.MalformedAbort))
	v.SetDefault("coverage.include_anonymous", false)

	// -- Report --
	v.SetDefault("report.format", "json")
	v.SetDefault("report.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.CoverageCfg.Validate(); err != nil {
		return fmt.Errorf("coverage configuration invalid: %w", err)
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the coverage settings.
func (c *CoverageConfig) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("coverage.concurrency must be a positive integer")
	}
	switch c.OnMalformed {
	case schemas.MalformedAbort, schemas.MalformedSkip:
	default:
		return fmt.Errorf("coverage.on_malformed must be %q or %q, got %q",
			schemas.MalformedAbort, schemas.MalformedSkip, c.OnMalformed)
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	for _, f := range ReportFormats {
		if r.Format == f {
			return nil
		}
	}
	return fmt.Errorf("report.format %q is not supported", r.Format)
}

// UserConfigDir returns ~/.covsweep, the secondary config search path.
func UserConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".covsweep"), nil
}
