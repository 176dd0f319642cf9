package editplan

import (
	"math"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

// Caps keep the window search predictable on long transcripts.
const (
	maxTrimStarts = 140
	maxLinesInWin = 60
)

// speechWindow picks where a main reference of the given length should start
// so it covers the most salient run of transcript lines. Lines are in clip
// time. Returns false when no line fits inside the clip.
func speechWindow(lines []types.TimedText, length, clipDur float64) (float64, bool) {
	if length <= 0 || clipDur <= 0 || len(lines) == 0 {
		return 0, false
	}

	stride := 1
	if len(lines) > maxTrimStarts {
		stride = (len(lines) + maxTrimStarts - 1) / maxTrimStarts
	}

	bestStart, bestScore := 0.0, math.Inf(-1)
	found := false
	for i := 0; i < len(lines); i += stride {
		start := lines[i].Start
		if start < 0 || start >= clipDur {
			continue
		}
		var parts []string
		for j := i; j < len(lines) && j-i < maxLinesInWin; j++ {
			if lines[j].End-start > length {
				break
			}
			if t := strings.TrimSpace(lines[j].Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			// a single line longer than the window still anchors it
			parts = append(parts, lines[i].Text)
		}
		text := strings.Join(parts, " ")
		// favour windows that fill more of the slot with speech
		s := salience(text) + 0.002*float64(len(strings.Fields(text)))
		if s > bestScore {
			bestStart, bestScore, found = start, s, true
		}
	}
	return bestStart, found
}

// visualWindow centres a window of the given length on the clip's
// representative frame, or on the middle of the clip.
func visualWindow(scene types.ClipSceneSummary, length, clipDur float64) float64 {
	anchor := clipDur / 2
	if scene.OverallClassification != nil {
		if ts := scene.OverallClassification.Timestamp; ts > 0 && ts < clipDur {
			anchor = ts
		}
	}
	return anchor - length/2
}

// fitWindow clamps a window of the given length, starting near start, into
// [0, clipDur] and rounds to milliseconds without leaving the clip.
func fitWindow(start, length, clipDur float64) (float64, float64, bool) {
	if length > clipDur {
		length = clipDur
	}
	if start+length > clipDur {
		start = clipDur - length
	}
	if start < 0 {
		start = 0
	}
	s := math.Ceil(start*1000) / 1000
	e := math.Floor((start+length)*1000) / 1000
	if e > clipDur {
		e = clipDur
	}
	if s < 0 || e <= s {
		return 0, 0, false
	}
	return s, e, true
}
