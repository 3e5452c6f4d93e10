package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ParseError reports a config file that could not be decoded.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads a configuration file, choosing the decoder by extension
// (.yaml/.yml or .toml), validates it, and applies defaults for unset
// blocks.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return Config{}, &ParseError{Path: path, Message: "unsupported extension, want .yaml, .yml, or .toml"}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Search.MaxHistoryItems == 0 {
		cfg.Search.MaxHistoryItems = DefaultMaxHistoryItems
	}
	for i := range cfg.Columns {
		if cfg.Columns[i].Editable && cfg.Columns[i].EditType == "" {
			cfg.Columns[i].EditType = EditText
		}
	}
}
