package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validatePlan(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis
	if a.Workers <= 0 {
		return errors.New("analysis.workers must be positive")
	}
	if a.MaxInFlight <= 0 {
		return errors.New("analysis.max_in_flight must be positive")
	}
	if a.ClipTimeoutSeconds < 0 {
		return errors.New("analysis.clip_timeout_seconds must be >= 0")
	}
	if a.SegmentWindowSeconds <= 0 {
		return errors.New("analysis.segment_window_seconds must be positive")
	}
	if a.SegmentOverlapSeconds < 0 || a.SegmentOverlapSeconds >= a.SegmentWindowSeconds {
		return fmt.Errorf("analysis.segment_overlap_seconds must be in [0, %v)", a.SegmentWindowSeconds)
	}
	if a.FramesPerClip <= 0 {
		return errors.New("analysis.frames_per_clip must be positive")
	}
	return nil
}

func (c *Config) validatePlan() error {
	p := c.Plan
	if p.MainClipMaxSeconds <= 0 || p.MainClipMinSeconds <= 0 {
		return errors.New("plan.main_clip_min_seconds and plan.main_clip_max_seconds must be positive")
	}
	if p.MainClipMinSeconds > p.MainClipMaxSeconds {
		return fmt.Errorf("plan.main_clip_min_seconds (%v) exceeds plan.main_clip_max_seconds (%v)", p.MainClipMinSeconds, p.MainClipMaxSeconds)
	}
	if p.BrollClipMinSeconds < 0 {
		return errors.New("plan.broll_clip_min_seconds must be >= 0")
	}
	if p.BrollPerMain < 0 {
		return errors.New("plan.broll_per_main must be >= 0")
	}
	seen := map[string]bool{}
	for i, v := range p.Variants {
		if v.Name == "" {
			return fmt.Errorf("plan.variants[%d]: name is required", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("plan.variants: duplicate name %q", v.Name)
		}
		seen[v.Name] = true
		if v.Scale <= 0 {
			return fmt.Errorf("plan.variants[%d] (%s): scale must be positive", i, v.Name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
