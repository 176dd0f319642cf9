package scenes

import (
	"errors"
	"fmt"
	"math"

	"github.com/forPelevin/roughcut/internal/types"
)

// ErrMissingTimestamps is returned when no valid frame can be sampled, e.g.
// for a still image with zero duration.
var ErrMissingTimestamps = errors.New("scenes: no valid sample timestamps")

// SampleTimestamps spreads n interior timestamps evenly across the clip,
// rounded to milliseconds and strictly inside (0, duration).
func SampleTimestamps(clip types.Clip, n int) ([]float64, error) {
	d := clip.DurationSeconds
	if n <= 0 || d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil, fmt.Errorf("%s: %w", clip.Filename, ErrMissingTimestamps)
	}
	if clip.Video == nil && clip.Audio != nil {
		return nil, fmt.Errorf("%s: no video stream: %w", clip.Filename, ErrMissingTimestamps)
	}

	out := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		ts := math.Round(d*float64(i)/float64(n+1)*1000) / 1000
		if ts <= 0 || ts >= d {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == ts {
			continue
		}
		out = append(out, ts)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", clip.Filename, ErrMissingTimestamps)
	}
	return out, nil
}
