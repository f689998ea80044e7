package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pevans/ainews/scraper"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvDBDriver  = "AINEWS_DB_DRIVER"
	EnvDBDSN     = "AINEWS_DB_DSN"
	EnvLogLevel  = "AINEWS_LOG_LEVEL"
	EnvGeminiKey = "GEMINI_API_KEY"
)

// DefaultPath returns ~/.ainews/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ainews", "config.yaml"), nil
}

// Load builds the configuration from defaults, the YAML file at path (or
// DefaultPath when empty), a .env file in the working directory, and the
// environment, in increasing order of precedence. A missing config or .env
// file is not an error.
func Load(path string) (*Config, error) {
	// Variables already set in the environment win over .env.
	_ = godotenv.Load()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg.
func loadFile(path string, cfg *Config) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBDriver); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvGeminiKey); v != "" {
		cfg.Classifier.APIKey = v
	}
}

func normalize(cfg *Config) {
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	for i := range cfg.Sources {
		if cfg.Sources[i].Kind == "" {
			cfg.Sources[i].Kind = scraper.KindHTML
		}
	}

	if cfg.Storage.Driver == "sqlite3" {
		cfg.Storage.DSN = expandHome(cfg.Storage.DSN)
	}
	cfg.Report.FontDir = expandHome(cfg.Report.FontDir)
	cfg.Report.OutputDir = expandHome(cfg.Report.OutputDir)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
