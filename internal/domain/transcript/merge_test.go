package transcript

import (
	"testing"

	"github.com/forPelevin/roughcut/internal/types"
)

func seg(start, dur float64, lang string, subs ...types.SubSegment) types.Segment {
	return types.Segment{
		Window:        types.Window{StartTime: start, Duration: dur},
		Transcription: types.TranscriptionResult{Language: lang, Duration: dur, Segments: subs},
	}
}

func TestMerge_DropsWordsRepeatedInOverlap(t *testing.T) {
	segs := []types.Segment{
		seg(0, 30, "en",
			types.SubSegment{Start: 0, End: 10, Text: "Welcome to the workshop."},
			types.SubSegment{Start: 25, End: 30, Text: "Today we build a chair"},
		),
		seg(28, 30, "en",
			types.SubSegment{Start: 0, End: 4, Text: "build a Chair, from oak"},
			types.SubSegment{Start: 4, End: 9, Text: "and walnut."},
		),
	}
	got := Merge("C0001.MP4", segs)
	want := "Welcome to the workshop. Today we build a chair from oak and walnut."
	if got.Text != want {
		t.Fatalf("text = %q, want %q", got.Text, want)
	}
	if got.WordCount != 13 {
		t.Fatalf("word count = %d, want 13", got.WordCount)
	}
	if got.Language != "en" {
		t.Fatalf("language = %q", got.Language)
	}
	if got.Duration != 58 {
		t.Fatalf("duration = %v, want 58", got.Duration)
	}
	if len(got.Lines) != 4 || got.Lines[2].Start != 28 || got.Lines[2].Text != "from oak" {
		t.Fatalf("unexpected lines: %+v", got.Lines)
	}
}

func TestMerge_KeepsRepeatsWithoutOverlap(t *testing.T) {
	segs := []types.Segment{
		seg(0, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "again and again"}),
		seg(30, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "again we go"}),
	}
	got := Merge("a.mp4", segs)
	if got.Text != "again and again again we go" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestMerge_SortsByStartTime(t *testing.T) {
	segs := []types.Segment{
		seg(30, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "second"}),
		seg(0, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "first"}),
	}
	if got := Merge("a.mp4", segs); got.Text != "first second" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestMerge_LanguageFromMostConfidentSegment(t *testing.T) {
	tests := []struct {
		name string
		segs []types.Segment
		want string
	}{
		{
			name: "lowest no speech wins",
			segs: []types.Segment{
				seg(0, 30, "nn", types.SubSegment{Text: "hmm", NoSpeechProb: 0.8}),
				seg(30, 30, "en", types.SubSegment{Text: "hello there", NoSpeechProb: 0.05}),
			},
			want: "en",
		},
		{
			name: "tie goes to earliest",
			segs: []types.Segment{
				seg(0, 30, "de", types.SubSegment{Text: "hallo", NoSpeechProb: 0.1}),
				seg(30, 30, "en", types.SubSegment{Text: "hello", NoSpeechProb: 0.1}),
			},
			want: "de",
		},
		{
			name: "missing language ignored",
			segs: []types.Segment{
				seg(0, 30, "", types.SubSegment{Text: "hello", NoSpeechProb: 0}),
				seg(30, 30, "fr", types.SubSegment{Text: "bonjour", NoSpeechProb: 0.3}),
			},
			want: "fr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge("a.mp4", tt.segs).Language; got != tt.want {
				t.Fatalf("language = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge_EmptyClipIsNotAFailure(t *testing.T) {
	segs := []types.Segment{
		seg(0, 30, "en"),
		seg(30, 12, "en", types.SubSegment{Text: "   "}),
	}
	got := Merge("silent.mp4", segs)
	if got.WordCount != 0 || got.Text != "" {
		t.Fatalf("expected empty transcript, got %+v", got)
	}
	if got.Language != "unknown" {
		t.Fatalf("language = %q, want unknown", got.Language)
	}
	if got.Error != types.CodeEmptyTranscript {
		t.Fatalf("error = %q", got.Error)
	}
	if got.Duration != 42 {
		t.Fatalf("duration = %v, want 42", got.Duration)
	}

	if none := Merge("none.mp4", nil); none.Language != "unknown" || none.WordCount != 0 {
		t.Fatalf("unexpected record for clip without segments: %+v", none)
	}
}

func TestMerge_FlatTextWithoutSubSegments(t *testing.T) {
	segs := []types.Segment{{
		Window:        types.Window{StartTime: 0, Duration: 10},
		Transcription: types.TranscriptionResult{Language: "en", Duration: 10, Text: " just text "},
	}}
	got := Merge("a.mp4", segs)
	if got.Text != "just text" || got.WordCount != 2 {
		t.Fatalf("unexpected transcript %+v", got)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	segs := []types.Segment{
		seg(0, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "one two three", AvgLogprob: -0.2}),
		seg(28, 30, "en", types.SubSegment{Start: 0, End: 5, Text: "three four", AvgLogprob: -0.4}),
	}
	a := Merge("a.mp4", segs)
	b := Merge("a.mp4", segs)
	if a.Text != b.Text || a.AvgLogprob != b.AvgLogprob || len(a.Lines) != len(b.Lines) {
		t.Fatalf("non-deterministic merge: %+v vs %+v", a, b)
	}
	if a.Text != "one two three four" {
		t.Fatalf("unexpected text %q", a.Text)
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := map[string]string{
		"Hello,": "hello",
		"«Oak»":  "oak",
		"ＡＢＣ":    "abc",
		"...":    "",
		"don't":  "don't",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := NormalizeToken(in); got != want {
				t.Fatalf("NormalizeToken(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
