// Package config handles configuration loading and validation for pdfmark.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration.
type Config struct {
	// Storage configuration for uploaded documents.
	Storage StorageConfig `toml:"storage"`

	// Signatures configuration for the saved-signature library.
	Signatures SignatureConfig `toml:"signatures"`

	// Export configuration for the PDF annotation pipeline.
	Export ExportConfig `toml:"export"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig holds upload persistence configuration.
type StorageConfig struct {
	// Dir is the directory uploaded documents are stored in.
	Dir string `toml:"dir"`

	// MaxUploadMB is the largest accepted upload in megabytes.
	MaxUploadMB int `toml:"max_upload_mb"`
}

// SignatureConfig holds the saved-signature library configuration.
type SignatureConfig struct {
	// Path is the JSON file the library persists to.
	Path string `toml:"path"`

	// Max is the number of signatures retained before the oldest is
	// evicted.
	Max int `toml:"max"`
}

// ExportConfig holds export pipeline configuration.
type ExportConfig struct {
	// CJKFontPath points at a TrueType font embedded for non-ASCII
	// text. Empty disables CJK embedding.
	CJKFontPath string `toml:"cjk_font_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults rooted
// under the user data directory.
func DefaultConfig() *Config {
	data := dataDir()
	return &Config{
		Storage: StorageConfig{
			Dir:         filepath.Join(data, "uploads"),
			MaxUploadMB: 50,
		},
		Signatures: SignatureConfig{
			Path: filepath.Join(data, "signatures.json"),
			Max:  10,
		},
		Export: ExportConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the TOML file at path, applying defaults for absent keys.
// A missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	var errs ValidationErrors
	if c.Storage.Dir == "" {
		errs = append(errs, ValidationError{"storage.dir", "must not be empty"})
	}
	if c.Storage.MaxUploadMB <= 0 {
		errs = append(errs, ValidationError{"storage.max_upload_mb", "must be positive"})
	}
	if c.Signatures.Path == "" {
		errs = append(errs, ValidationError{"signatures.path", "must not be empty"})
	}
	if c.Signatures.Max <= 0 {
		errs = append(errs, ValidationError{"signatures.max", "must be positive"})
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"logging.level",
			fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{"logging.format",
			fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidationError describes a single invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid value found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pdfmark")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pdfmark"
	}
	return filepath.Join(home, ".pdfmark")
}
