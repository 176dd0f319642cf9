// Package config loads roughcut's TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

type Paths struct {
	OutDir   string `toml:"out_dir"`
	CacheDir string `toml:"cache_dir"`
	StateDB  string `toml:"state_db"`
}

type Analysis struct {
	Workers               int     `toml:"workers"`
	MaxInFlight           int     `toml:"max_in_flight"`
	ClipTimeoutSeconds    int     `toml:"clip_timeout_seconds"`
	SegmentWindowSeconds  float64 `toml:"segment_window_seconds"`
	SegmentOverlapSeconds float64 `toml:"segment_overlap_seconds"`
	FramesPerClip         int     `toml:"frames_per_clip"`
}

type Variant struct {
	Name  string  `toml:"name"`
	Scale float64 `toml:"scale"`
}

type Plan struct {
	MainClipMaxSeconds  float64   `toml:"main_clip_max_seconds"`
	MainClipMinSeconds  float64   `toml:"main_clip_min_seconds"`
	BrollClipMinSeconds float64   `toml:"broll_clip_min_seconds"`
	BrollPerMain        int       `toml:"broll_per_main"`
	Variants            []Variant `toml:"variants"`
}

type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	WhisperBin   string `toml:"whisper_bin"`
	WhisperModel string `toml:"whisper_model"`
}

type OpenRouter struct {
	APIKey       string   `toml:"api_key"`
	Model        string   `toml:"model"`
	BaseURL      string   `toml:"base_url"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full application configuration.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Analysis   Analysis   `toml:"analysis"`
	Plan       Plan       `toml:"plan"`
	Tools      Tools      `toml:"tools"`
	OpenRouter OpenRouter `toml:"openrouter"`
	Logging    Logging    `toml:"logging"`
}

const defaultConfigPath = "~/.config/roughcut/config.toml"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// array tables append to existing slices; normalize restores defaults
		cfg.Plan.Variants = nil
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("roughcut.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) ClipTimeout() time.Duration {
	return time.Duration(c.Analysis.ClipTimeoutSeconds) * time.Second
}

// EnsureDirectories creates the output and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutDir, c.Paths.CacheDir, filepath.Dir(c.Paths.StateDB)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("write sample config: %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
