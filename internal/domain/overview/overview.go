// Package overview computes project-level statistics and assembles the
// project document from per-clip aggregates.
package overview

import (
	"sort"

	"github.com/forPelevin/roughcut/internal/types"
)

// Compute derives overview counts. A clip counts as transcribed when its
// merged transcript has words, and as analyzed when its scene aggregate
// carries no error.
func Compute(aggs []types.ClipAggregate) types.Overview {
	ov := types.Overview{TotalClips: len(aggs)}
	for _, a := range aggs {
		ov.TotalDuration += a.Clip.DurationSeconds
		if a.Transcript.Usable() {
			ov.TranscribedClips++
		}
		if a.Scenes.Error == "" {
			ov.AnalyzedClips++
		}
	}
	ov.TranscriptionRate = rate(ov.TranscribedClips, ov.TotalClips)
	ov.AnalysisRate = rate(ov.AnalyzedClips, ov.TotalClips)
	return ov
}

// Scenes collects per-clip scene summaries. Errored clips are listed but left
// out of the consistency rate denominator.
func Scenes(aggs []types.ClipAggregate) types.SceneAnalysis {
	sa := types.SceneAnalysis{Clips: make(map[string]types.ClipSceneSummary, len(aggs))}
	for _, a := range aggs {
		sa.Clips[a.Clip.Filename] = a.Scenes
		if a.Scenes.Error != "" {
			continue
		}
		sa.AnalyzedClips++
		if a.Scenes.IsConsistent {
			sa.ConsistentClips++
		}
	}
	sa.ConsistencyRate = rate(sa.ConsistentClips, sa.AnalyzedClips)
	return sa
}

func Diarization(aggs []types.ClipAggregate) types.DiarizationAnalysis {
	da := types.DiarizationAnalysis{ClipResults: make(map[string]types.DiarizationSummary, len(aggs))}
	for _, a := range aggs {
		da.ClipResults[a.Clip.Filename] = a.Diarization
	}
	return da
}

// Assemble builds the project document. Every clip appears by filename,
// ordered as in the catalog; run metadata is left for the caller.
func Assemble(aggs []types.ClipAggregate, grading types.ColorGrading, plans []types.EditPlan) types.Project {
	p := types.Project{
		Overview:    Compute(aggs),
		Clips:       make([]types.Clip, 0, len(aggs)),
		Transcripts: make([]types.ClipTranscript, 0, len(aggs)),
		Analysis: types.Analysis{
			Diarization:  Diarization(aggs),
			Scenes:       Scenes(aggs),
			ColorGrading: grading,
		},
		EditPlans: plans,
	}
	if p.EditPlans == nil {
		p.EditPlans = []types.EditPlan{}
	}
	for _, a := range aggs {
		p.Clips = append(p.Clips, a.Clip)
		t := a.Transcript
		if t.Filename == "" {
			t.Filename = a.Clip.Filename
		}
		p.Transcripts = append(p.Transcripts, t)
	}
	return p
}

// Failures lists clip filenames with any stage error, sorted.
func Failures(p types.Project) []string {
	seen := map[string]bool{}
	for _, t := range p.Transcripts {
		if t.Error != "" && t.Error != types.CodeEmptyTranscript {
			seen[t.Filename] = true
		}
	}
	for name, s := range p.Analysis.Scenes.Clips {
		if s.Error != "" {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func rate(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
