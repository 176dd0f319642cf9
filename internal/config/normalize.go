package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenRouter()
	c.normalizeLogging()
	if len(c.Plan.Variants) == 0 {
		c.Plan.Variants = Default().Plan.Variants
	}
	for i := range c.Plan.Variants {
		c.Plan.Variants[i].Name = strings.TrimSpace(c.Plan.Variants[i].Name)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDB) == "" {
		c.Paths.StateDB = defaultStateDB
	}
	if c.Paths.StateDB, err = expandPath(c.Paths.StateDB); err != nil {
		return fmt.Errorf("paths.state_db: %w", err)
	}
	if c.Tools.WhisperModel, err = expandPath(c.Tools.WhisperModel); err != nil {
		return fmt.Errorf("tools.whisper_model: %w", err)
	}
	return nil
}

// Environment variables win over the file for OpenRouter settings so keys
// can stay in .env.
func (c *Config) normalizeOpenRouter() {
	if v, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.APIKey = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.Model = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.AllowedHosts = splitCSV(v)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
