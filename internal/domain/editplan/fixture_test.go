package editplan

import (
	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/types"
)

func strp(s string) *string { return &s }

func speakingClip(name string, dur float64, speaker string) types.ClipAggregate {
	return types.ClipAggregate{
		Clip: types.Clip{Filename: name, DurationSeconds: dur},
		Transcript: types.ClipTranscript{
			Filename:  name,
			Text:      "Welcome back. Today we explain how to build a table in 3 steps.",
			WordCount: 13,
			Language:  "en",
			Duration:  dur,
			Lines: []types.TimedText{
				{Start: 1, End: 4, Text: "Welcome back."},
				{Start: 4, End: 10, Text: "Today we explain how to build a table in 3 steps."},
				{Start: 12, End: 18, Text: "First, measure twice."},
			},
		},
		Diarization: types.DiarizationSummary{
			TotalSegments:   2,
			SpeakersFound:   1,
			SpeakerStats:    map[string]types.SpeakerStat{speaker: {Appearances: 2, TotalTime: dur, Percentage: 100}},
			DominantSpeaker: strp(speaker),
		},
		Scenes: sceneOf(scenes.MediumShot, scenes.FocusPerson, dur/2, true),
	}
}

func visualClip(name string, dur float64, focus string) types.ClipAggregate {
	return types.ClipAggregate{
		Clip:        types.Clip{Filename: name, DurationSeconds: dur},
		Transcript:  types.ClipTranscript{Filename: name, Language: "unknown", Error: types.CodeEmptyTranscript},
		Diarization: types.DiarizationSummary{SpeakerStats: map[string]types.SpeakerStat{}, Error: types.CodeNoSpeakerDetected},
		Scenes:      sceneOf(scenes.WideShot, focus, dur/3, true),
	}
}

func brokenClip(name string, dur float64) types.ClipAggregate {
	return types.ClipAggregate{
		Clip:        types.Clip{Filename: name, DurationSeconds: dur},
		Transcript:  types.ClipTranscript{Filename: name, Language: "unknown", Error: types.CodeTimeout},
		Diarization: types.DiarizationSummary{SpeakerStats: map[string]types.SpeakerStat{}, Error: types.CodeTimeout},
		Scenes:      types.ClipSceneSummary{Error: types.CodeTimeout},
	}
}

func sceneOf(scale, focus string, ts float64, consistent bool) types.ClipSceneSummary {
	return types.ClipSceneSummary{
		OverallClassification: &types.FrameAnalysis{
			ShotScale:    scale,
			ShotMovement: "Static",
			SubjectFocus: focus,
			SubjectCount: 1,
			Confidence:   0.9,
			Timestamp:    ts,
		},
		Consistency:  types.SceneConsistency{ShotScale: consistent, Movement: consistent, Subject: consistent},
		IsConsistent: consistent,
		Timestamps:   []float64{ts},
	}
}

func catalogOf(aggs []types.ClipAggregate) map[string]types.Clip {
	m := make(map[string]types.Clip, len(aggs))
	for _, a := range aggs {
		m[a.Clip.Filename] = a.Clip
	}
	return m
}
