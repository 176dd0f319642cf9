package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultOutDir  = "./out"
	defaultStateDB = "~/.local/share/roughcut/roughcut.db"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir(),
			StateDB:  defaultStateDB,
		},
		Analysis: Analysis{
			Workers:               4,
			MaxInFlight:           4,
			ClipTimeoutSeconds:    600,
			SegmentWindowSeconds:  30,
			SegmentOverlapSeconds: 2,
			FramesPerClip:         3,
		},
		Plan: Plan{
			MainClipMaxSeconds:  20,
			MainClipMinSeconds:  3,
			BrollClipMinSeconds: 1.5,
			BrollPerMain:        1,
			Variants: []Variant{
				{Name: "Full cut", Scale: 1},
				{Name: "Short cut", Scale: 0.5},
			},
		},
		Tools: Tools{
			FFmpeg:     "ffmpeg",
			FFprobe:    "ffprobe",
			WhisperBin: "whisper-cli",
		},
		OpenRouter: OpenRouter{
			BaseURL: "https://openrouter.ai",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "roughcut")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/roughcut"
	}
	return filepath.Join(home, ".cache", "roughcut")
}
