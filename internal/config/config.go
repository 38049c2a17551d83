// Package config loads and saves the icvial YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/example/icvial/internal/core/reconcile"
	"github.com/example/icvial/internal/db"
	"github.com/example/icvial/internal/logging"
)

// FileName is the config file looked up in the working directory.
const FileName = ".icvial.yaml"

// Config represents the flat icvial configuration
type Config struct {
	OutputDir      string `yaml:"outdir"`
	MetadataDir    string `yaml:"metadir"`
	MismatchPolicy string `yaml:"mismatch_policy"` // "prompt" or "abort"
	MaxAttempts    int    `yaml:"max_attempts"`
	LedgerPath     string `yaml:"ledger_path,omitempty"` // Empty uses ~/.icvial/icvial.db
	LogLevel       string `yaml:"log_level"`
	BreakColumn    string `yaml:"break_column"`
	Delimiter      string `yaml:"delimiter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir:      "output",
		MetadataDir:    "metadata",
		MismatchPolicy: string(reconcile.PolicyPrompt),
		MaxAttempts:    5,
		LogLevel:       logging.DefaultLevel,
		BreakColumn:    reconcile.DefaultBreakColumn,
		Delimiter:      ",",
	}
}

// DefaultPath returns FileName in the current directory.
func DefaultPath() string {
	return FileName
}

// LoadConfig reads the config at path, layered over Default().
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML to path
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if _, err := reconcile.ParseMismatchPolicy(c.MismatchPolicy); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	}
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the table delimiter, or zero for the codec default.
func (c *Config) DelimiterRune() rune {
	if c.Delimiter == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// ResolveLedgerPath returns the configured ledger path or the default location.
func (c *Config) ResolveLedgerPath() (string, error) {
	if c.LedgerPath != "" {
		return c.LedgerPath, nil
	}
	return db.DefaultPath()
}
