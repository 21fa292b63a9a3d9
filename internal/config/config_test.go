package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/vegasq/s3sel/reader"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	if cfg.Query.MaxRowErrors != 100 {
		t.Errorf("Expected default max_row_errors 100, got %d", cfg.Query.MaxRowErrors)
	}
	if cfg.Input.Header != "none" {
		t.Errorf("Expected default header mode 'none', got %s", cfg.Input.Header)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("Expected default output format 'csv', got %s", cfg.Output.Format)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected default log level 'warn', got %s", cfg.Log.Level)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		shouldError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"tab delimiter", func(c *Config) { c.Input.Delimiter = "tab" }, false},
		{"negative arena", func(c *Config) { c.Query.ArenaMaxNodes = -1 }, true},
		{"unknown input format", func(c *Config) { c.Input.Format = "xml" }, true},
		{"unknown header mode", func(c *Config) { c.Input.Header = "maybe" }, true},
		{"unknown compression", func(c *Config) { c.Input.Compression = "rar" }, true},
		{"long delimiter", func(c *Config) { c.Input.Delimiter = ";;" }, true},
		{"quote delimiter", func(c *Config) { c.Output.Delimiter = `"` }, true},
		{"unknown output format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"negative width", func(c *Config) { c.Output.MaxWidth = -3 }, true},
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.shouldError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3sel.yaml")
	content := `
query:
  max_row_errors: 5
input:
  format: csv
  delimiter: "|"
  header: use
  compression: gzip
output:
  format: table
  max_width: 12
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Query.MaxRowErrors != 5 {
		t.Errorf("max_row_errors = %d, want 5", cfg.Query.MaxRowErrors)
	}
	if cfg.Output.Format != "table" || cfg.Output.MaxWidth != 12 {
		t.Errorf("output = %+v", cfg.Output)
	}

	opts, err := cfg.ReaderOptions()
	if err != nil {
		t.Fatalf("ReaderOptions: %v", err)
	}
	want := reader.Options{
		Format:      reader.FormatCSV,
		Compression: reader.CompressionGzip,
		CSV:         reader.CSVOptions{Delimiter: '|', Header: reader.HeaderUse},
	}
	if opts != want {
		t.Errorf("ReaderOptions() = %+v, want %+v", opts, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("S3SEL_INPUT_HEADER", "ignore")
	t.Setenv("S3SEL_OUTPUT_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Input.Header != "ignore" {
		t.Errorf("header = %q, want ignore", cfg.Input.Header)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("output format = %q, want json", cfg.Output.Format)
	}
}

func TestFlagOverride(t *testing.T) {
	v := viper.New()
	v.Set("output.delimiter", "tab")

	cfg, err := LoadWith(v, "")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	opts, err := cfg.OutputOptions()
	if err != nil {
		t.Fatalf("OutputOptions: %v", err)
	}
	if opts.Delimiter != '\t' {
		t.Errorf("delimiter = %q, want tab", opts.Delimiter)
	}
}

func TestParseRune(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{",", ',', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{"§", '§', false},
		{"ab", 0, true},
		{"\n", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRune("key", tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRune(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRune(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
