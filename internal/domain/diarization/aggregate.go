package diarization

import (
	"sort"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

type speakerAcc struct {
	stat  types.SpeakerStat
	first float64
}

// Aggregate folds per-window speaker detections for one clip into per-speaker
// totals. A window shared by several speakers is split evenly between them
// instead of crediting each with the full window: the detections carry no
// per-speaker timing, and a full credit per speaker would let the summed
// totals exceed the analysed time. With the split, the sum of TotalTime never
// exceeds the sum of window durations.
func Aggregate(segs []types.Segment) types.DiarizationSummary {
	out := types.DiarizationSummary{SpeakerStats: map[string]types.SpeakerStat{}}

	ordered := make([]types.Segment, len(segs))
	copy(ordered, segs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })

	accs := map[string]*speakerAcc{}
	var seen []string
	for _, seg := range ordered {
		out.TotalSegments++
		speakers := uniqueSpeakers(seg.Diarization.SpeakersDetected)
		if len(speakers) == 0 {
			continue
		}
		share := SegmentDuration(seg) / float64(len(speakers))
		for _, sp := range speakers {
			acc, ok := accs[sp]
			if !ok {
				acc = &speakerAcc{first: seg.StartTime, stat: types.SpeakerStat{Segments: []float64{}}}
				accs[sp] = acc
				seen = append(seen, sp)
			}
			acc.stat.Appearances++
			acc.stat.Segments = append(acc.stat.Segments, seg.StartTime)
			acc.stat.TotalTime += share
		}
	}

	if len(seen) == 0 {
		out.Error = types.CodeNoSpeakerDetected
		return out
	}

	var total float64
	for _, sp := range seen {
		total += accs[sp].stat.TotalTime
	}
	for _, sp := range seen {
		st := accs[sp].stat
		if total > 0 {
			st.Percentage = st.TotalTime / total * 100
		}
		out.SpeakerStats[sp] = st
	}
	out.SpeakersFound = len(seen)

	dominant := dominantSpeaker(seen, accs)
	out.DominantSpeaker = &dominant
	return out
}

// SegmentDuration is the nominal length of a window, falling back to the
// transcription engine's reported duration.
func SegmentDuration(seg types.Segment) float64 {
	if seg.Duration > 0 {
		return seg.Duration
	}
	if seg.Transcription.Duration > 0 {
		return seg.Transcription.Duration
	}
	return 0
}

// dominantSpeaker picks max total time, then earliest first appearance, then
// the lexically smallest label.
func dominantSpeaker(ids []string, accs map[string]*speakerAcc) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	best := sorted[0]
	for _, sp := range sorted[1:] {
		a, b := accs[sp], accs[best]
		switch {
		case a.stat.TotalTime > b.stat.TotalTime:
			best = sp
		case a.stat.TotalTime == b.stat.TotalTime && a.first < b.first:
			best = sp
		}
	}
	return best
}

func uniqueSpeakers(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
