package whispercpp

import (
	"context"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

// PresenceDiarizer is the fallback used when no diarization results are
// available: a window with transcribed speech is attributed to a single
// speaker label, a silent window to nobody.
type PresenceDiarizer struct {
	Label       string
	MaxNoSpeech float64
}

func (d PresenceDiarizer) Diarize(_ context.Context, clip types.Clip, seg types.Segment) (types.DiarizationResult, error) {
	label := d.Label
	if label == "" {
		label = "Speaker 1"
	}
	limit := d.MaxNoSpeech
	if limit <= 0 {
		limit = 0.6
	}
	res := types.DiarizationResult{
		SegmentPath:      clip.Path,
		StartTime:        seg.StartTime,
		Text:             seg.Transcription.Text,
		SpeakersDetected: []string{},
	}
	for _, s := range seg.Transcription.Segments {
		if strings.TrimSpace(s.Text) != "" && s.NoSpeechProb < limit {
			res.SpeakersDetected = []string{label}
			break
		}
	}
	return res, nil
}
