package diarization

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/forPelevin/roughcut/internal/types"
)

func dseg(start, dur float64, speakers ...string) types.Segment {
	return types.Segment{
		Window:      types.Window{StartTime: start, Duration: dur},
		Diarization: types.DiarizationResult{StartTime: start, SpeakersDetected: speakers},
	}
}

func TestAggregate_SingleSpeakerTwoWindows(t *testing.T) {
	got := Aggregate([]types.Segment{
		dseg(0, 30, "Speaker 1"),
		dseg(30, 30, "Speaker 1"),
	})
	st, ok := got.SpeakerStats["Speaker 1"]
	if !ok {
		t.Fatalf("missing speaker stats: %+v", got)
	}
	if st.TotalTime != 60 || st.Percentage != 100 || st.Appearances != 2 {
		t.Fatalf("unexpected stat %+v", st)
	}
	if got.Dominant() != "Speaker 1" {
		t.Fatalf("dominant = %q", got.Dominant())
	}
	if len(st.Segments) != 2 || st.Segments[1] != 30 {
		t.Fatalf("unexpected segment list %v", st.Segments)
	}
}

func TestAggregate_NoSpeakers(t *testing.T) {
	got := Aggregate([]types.Segment{dseg(0, 30), dseg(30, 30)})
	if got.TotalSegments != 2 {
		t.Fatalf("total segments = %d", got.TotalSegments)
	}
	if got.DominantSpeaker != nil || len(got.SpeakerStats) != 0 {
		t.Fatalf("expected no speakers, got %+v", got)
	}
	if got.Error != types.CodeNoSpeakerDetected {
		t.Fatalf("error = %q", got.Error)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"total_segments":2,"speakers_found":0,"speaker_stats":{},"dominant_speaker":null,"error":"NoSpeakerDetected"}`
	if string(b) != want {
		t.Fatalf("json = %s\nwant %s", b, want)
	}
}

func TestAggregate_TieBreaksOnFirstAppearance(t *testing.T) {
	got := Aggregate([]types.Segment{
		dseg(0, 30),
		dseg(30, 30, "B"),
		dseg(60, 30, "A"),
	})
	if got.Dominant() != "B" {
		t.Fatalf("dominant = %q, want B", got.Dominant())
	}
	if got.TotalSegments != 3 || got.SpeakersFound != 2 {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestAggregate_SharedWindowIsSplit(t *testing.T) {
	segs := []types.Segment{
		dseg(0, 30, "A", "B", "A"),
		dseg(30, 30, "A"),
		dseg(60, 12, "B"),
	}
	got := Aggregate(segs)
	a, b := got.SpeakerStats["A"], got.SpeakerStats["B"]
	if a.TotalTime != 45 || b.TotalTime != 27 {
		t.Fatalf("unexpected totals A=%v B=%v", a.TotalTime, b.TotalTime)
	}
	if a.Appearances != 2 {
		t.Fatalf("duplicate label counted twice: %+v", a)
	}
	var sum, window float64
	for _, st := range got.SpeakerStats {
		sum += st.TotalTime
	}
	for _, s := range segs {
		window += SegmentDuration(s)
	}
	if sum > window {
		t.Fatalf("speaker time %v exceeds analysed time %v", sum, window)
	}
	if math.Abs(a.Percentage+b.Percentage-100) > 1e-9 {
		t.Fatalf("percentages do not sum to 100: %v + %v", a.Percentage, b.Percentage)
	}
	if got.Dominant() != "A" {
		t.Fatalf("dominant = %q", got.Dominant())
	}
}

func TestAggregate_DominantHasMaxTotal(t *testing.T) {
	got := Aggregate([]types.Segment{
		dseg(0, 10, "host"),
		dseg(10, 30, "guest"),
		dseg(40, 30, "host"),
	})
	dom := got.SpeakerStats[got.Dominant()]
	for id, st := range got.SpeakerStats {
		if st.TotalTime > dom.TotalTime {
			t.Fatalf("speaker %s has more time than dominant %s", id, got.Dominant())
		}
	}
	if got.Dominant() != "host" {
		t.Fatalf("dominant = %q", got.Dominant())
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	segs := []types.Segment{
		dseg(30, 30, "X", "Y"),
		dseg(0, 30, "Y"),
	}
	a, _ := json.Marshal(Aggregate(segs))
	b, _ := json.Marshal(Aggregate(segs))
	if string(a) != string(b) {
		t.Fatalf("output differs:\n%s\n%s", a, b)
	}
}
