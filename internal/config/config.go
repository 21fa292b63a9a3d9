// Package config handles configuration loading and validation for s3sel
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"github.com/vegasq/s3sel/output"
	"github.com/vegasq/s3sel/reader"
)

// Config holds all configuration for s3sel
type Config struct {
	Query  QueryConfig  `mapstructure:"query"`
	Input  InputConfig  `mapstructure:"input"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

// QueryConfig bounds query evaluation
type QueryConfig struct {
	MaxRowErrors  int `mapstructure:"max_row_errors"`
	ArenaMaxNodes int `mapstructure:"arena_max_nodes"`
	ArenaMaxBytes int `mapstructure:"arena_max_bytes"`
}

// InputConfig describes how input files are decoded
type InputConfig struct {
	Format      string `mapstructure:"format"`
	Delimiter   string `mapstructure:"delimiter"`
	Comment     string `mapstructure:"comment"`
	Header      string `mapstructure:"header"`
	Compression string `mapstructure:"compression"`
}

// OutputConfig describes how results are written
type OutputConfig struct {
	Format           string `mapstructure:"format"`
	Delimiter        string `mapstructure:"delimiter"`
	Header           bool   `mapstructure:"header"`
	MaxWidth         int    `mapstructure:"max_width"`
	SanitizeFormulas bool   `mapstructure:"sanitize_formulas"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Default configuration values
func defaultConfig() *Config {
	return &Config{
		Query: QueryConfig{
			MaxRowErrors:  100,
			ArenaMaxNodes: 4096,
			ArenaMaxBytes: 64 * 1024,
		},
		Input: InputConfig{
			Format:      "auto",
			Delimiter:   ",",
			Header:      "none",
			Compression: "auto",
		},
		Output: OutputConfig{
			Format:    "csv",
			Delimiter: ",",
			Header:    false,
			MaxWidth:  40,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from file and environment. Keys can be
// overridden with S3SEL_ variables, e.g. S3SEL_INPUT_HEADER=use.
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith is Load on a caller supplied viper instance, so command line
// flags bound to v take precedence over the file and environment.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	cfg := defaultConfig()
	v.SetDefault("query.max_row_errors", cfg.Query.MaxRowErrors)
	v.SetDefault("query.arena_max_nodes", cfg.Query.ArenaMaxNodes)
	v.SetDefault("query.arena_max_bytes", cfg.Query.ArenaMaxBytes)
	v.SetDefault("input.format", cfg.Input.Format)
	v.SetDefault("input.delimiter", cfg.Input.Delimiter)
	v.SetDefault("input.comment", cfg.Input.Comment)
	v.SetDefault("input.header", cfg.Input.Header)
	v.SetDefault("input.compression", cfg.Input.Compression)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.delimiter", cfg.Output.Delimiter)
	v.SetDefault("output.header", cfg.Output.Header)
	v.SetDefault("output.max_width", cfg.Output.MaxWidth)
	v.SetDefault("output.sanitize_formulas", cfg.Output.SanitizeFormulas)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)

	v.SetEnvPrefix("S3SEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("s3sel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.s3sel")

		// It's okay if no config file is found - we use defaults
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are sensible
func (c *Config) Validate() error {
	if c.Query.ArenaMaxNodes < 0 || c.Query.ArenaMaxBytes < 0 {
		return fmt.Errorf("arena limits must not be negative")
	}
	if _, err := reader.ParseFormat(c.Input.Format); err != nil {
		return err
	}
	if _, err := reader.ParseHeaderMode(c.Input.Header); err != nil {
		return err
	}
	if _, err := reader.ParseCompression(c.Input.Compression); err != nil {
		return err
	}
	if _, err := ParseRune("input.delimiter", c.Input.Delimiter); err != nil {
		return err
	}
	if _, err := ParseRune("input.comment", c.Input.Comment); err != nil {
		return err
	}
	if !output.IsFormat(c.Output.Format) {
		return fmt.Errorf("unknown output format %q (supported: %s)", c.Output.Format, strings.Join(output.Formats, ", "))
	}
	if _, err := ParseRune("output.delimiter", c.Output.Delimiter); err != nil {
		return err
	}
	if c.Output.MaxWidth < 0 {
		return fmt.Errorf("output.max_width must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	return nil
}

// ParseRune reads a single character setting. "tab" and `\t` name a tab;
// the empty string is zero.
func ParseRune(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) || r == '\n' || r == '\r' || r == '"' {
		return 0, fmt.Errorf("%s must be a single character other than quote or newline, got %q", key, s)
	}
	return r, nil
}

// ReaderOptions converts the input section
func (c *Config) ReaderOptions() (reader.Options, error) {
	format, err := reader.ParseFormat(c.Input.Format)
	if err != nil {
		return reader.Options{}, err
	}
	compression, err := reader.ParseCompression(c.Input.Compression)
	if err != nil {
		return reader.Options{}, err
	}
	header, err := reader.ParseHeaderMode(c.Input.Header)
	if err != nil {
		return reader.Options{}, err
	}
	delimiter, err := ParseRune("input.delimiter", c.Input.Delimiter)
	if err != nil {
		return reader.Options{}, err
	}
	comment, err := ParseRune("input.comment", c.Input.Comment)
	if err != nil {
		return reader.Options{}, err
	}
	return reader.Options{
		Format:      format,
		Compression: compression,
		CSV:         reader.CSVOptions{Delimiter: delimiter, Comment: comment, Header: header},
	}, nil
}

// OutputOptions converts the output section
func (c *Config) OutputOptions() (output.Options, error) {
	delimiter, err := ParseRune("output.delimiter", c.Output.Delimiter)
	if err != nil {
		return output.Options{}, err
	}
	return output.Options{
		Delimiter:        delimiter,
		Header:           c.Output.Header,
		MaxWidth:         c.Output.MaxWidth,
		SanitizeFormulas: c.Output.SanitizeFormulas,
	}, nil
}
