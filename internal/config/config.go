// Package config provides configuration loading for the catalog extractor.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical/catalog-extractor/internal/domain"
)

// APIKeyEnv is the environment variable holding the model API credential.
const APIKeyEnv = "OPENAI_API_KEY"

// Config holds all configuration for the catalog extractor.
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Render RenderConfig `yaml:"render"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// LLMConfig holds model endpoint settings.
type LLMConfig struct {
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RenderConfig holds page rasterization settings.
type RenderConfig struct {
	DPI float64 `yaml:"dpi"`
}

// OutputConfig holds persistence settings.
type OutputConfig struct {
	Dir        string `yaml:"dir"`        // empty: next to the input document
	Validation string `yaml:"validation"` // off, warn or strict
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "gpt-4o",
			MaxTokens: 4096,
			Timeout:   5 * time.Minute,
		},
		Render: RenderConfig{
			DPI: 72,
		},
		Output: OutputConfig{
			Validation: "off",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file and applies environment overrides.
// An empty path skips the file and starts from defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}

		if cfg.Output.Dir != "" {
			cfg.Output.Dir = ResolveRelativePath(path, cfg.Output.Dir)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, domain.ConfigError("apply environment overrides", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("llm model cannot be empty")
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 128000 {
		return fmt.Errorf("max_tokens must be between 1 and 128000, got %d", c.LLM.MaxTokens)
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.LLM.Timeout)
	}

	if c.Render.DPI < 18 || c.Render.DPI > 600 {
		return fmt.Errorf("render dpi must be between 18 and 600, got %g", c.Render.DPI)
	}

	switch c.Output.Validation {
	case "off", "warn", "strict":
	default:
		return fmt.Errorf("invalid validation mode: %s", c.Output.Validation)
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// APIKey returns the model API key from the environment.
func APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(APIKeyEnv))
	if key == "" {
		return "", domain.ConfigError(APIKeyEnv+" is not set (export it or add it to a .env file)", nil)
	}
	return key, nil
}

// OutputPath derives the workbook path for input: the input's base name with
// an .xlsx extension, placed in outputDir or, when that is empty, beside input.
func OutputPath(input, outputDir string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LLM_MAX_TOKENS: %w", err)
		}
		cfg.LLM.MaxTokens = n
	}

	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}

	if v := os.Getenv("RENDER_DPI"); v != "" {
		dpi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RENDER_DPI: %w", err)
		}
		cfg.Render.DPI = dpi
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	return nil
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
