// Package segments plans the audio windows a clip is transcribed in.
package segments

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

// Plan splits [0, duration) into windows of the given length stepping by
// window-overlap. The last window is truncated to the clip end. Window ids are
// derived from the clip name and are stable across runs.
func Plan(clip string, duration, window, overlap float64) ([]types.Window, error) {
	if window <= 0 {
		return nil, errors.New("segments: window must be > 0")
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("segments: overlap %.3f must be in [0, %.3f)", overlap, window)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, nil
	}

	step := window - overlap
	base := strings.TrimSuffix(clip, extOf(clip))
	var out []types.Window
	for i, start := 0, 0.0; start < duration; i, start = i+1, float64(i+1)*step {
		d := math.Min(window, duration-start)
		out = append(out, types.Window{
			ID:        fmt.Sprintf("%s_seg_%03d", base, i),
			StartTime: round3(start),
			Duration:  round3(d),
		})
		if start+d >= duration {
			break
		}
	}
	return out, nil
}

// ForClip plans windows for a catalog clip; clips without an audio stream get
// none.
func ForClip(c types.Clip, window, overlap float64) ([]types.Window, error) {
	if c.Audio == nil {
		return nil, nil
	}
	return Plan(c.Filename, c.DurationSeconds, window, overlap)
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
