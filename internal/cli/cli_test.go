package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/roughcut/internal/store"
	"github.com/forPelevin/roughcut/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// tempConfig writes a config whose paths all live under a temp dir.
func tempConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	body := strings.Join([]string{
		"[paths]",
		`out_dir = "` + filepath.ToSlash(filepath.Join(dir, "out")) + `"`,
		`cache_dir = "` + filepath.ToSlash(filepath.Join(dir, "cache")) + `"`,
		`state_db = "` + filepath.ToSlash(filepath.Join(dir, "state.db")) + `"`,
		"[logging]",
		`format = "json"`,
		`level = "error"`,
	}, "\n")
	return writeFile(t, dir, "roughcut.toml", body), dir
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cfg", "roughcut.toml")
	out, err := execute(t, "config", "init", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output=%q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := execute(t, "config", "init", target); err == nil {
		t.Fatalf("expected error when file exists")
	}
	if _, err := execute(t, "config", "init", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestRunThenHistory(t *testing.T) {
	cfgPath, dir := tempConfig(t)
	results := filepath.Join(dir, "results")
	writeFile(t, results, "catalog.json", `[
		{"filename": "C0001.MP4", "duration_seconds": 40},
		{"filename": "DJI_0002.MP4", "duration_seconds": 25}
	]`)
	writeFile(t, results, "segments/C0001.MP4.json", `[
		{"id": "a", "start_time": 0, "duration": 30,
		 "transcription": {"language": "en", "text": "welcome to the workshop",
		   "segments": [{"start": 0, "end": 3, "text": "welcome to the workshop"}]},
		 "diarization": {"speakers_detected": ["Speaker 1"]}}
	]`)
	writeFile(t, results, "scenes/C0001.MP4.json", `[
		{"shot_scale": "MS", "shot_movement": "static", "subject_focus": "person", "confidence": 0.9, "timestamp": 20}
	]`)
	writeFile(t, results, "scenes/DJI_0002.MP4.json", `[
		{"shot_scale": "WS", "shot_movement": "pan", "subject_focus": "environment", "confidence": 0.9, "timestamp": 12.5}
	]`)
	brief := writeFile(t, dir, "brief.yaml", "title: Workshop\ntarget_seconds: 30\nsections:\n  - name: Intro\n  - name: Location\n")

	out, err := execute(t, "--config", cfgPath, "run", "--results", results, "--brief", brief)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Project:", "C0001.MP4", "Workshop (Full cut)", "Workshop (Short cut)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("run output missing %q:\n%s", want, out)
		}
	}

	hist, err := execute(t, "--config", cfgPath, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(hist, "completed") || !strings.Contains(hist, "run") {
		t.Fatalf("history output:\n%s", hist)
	}
}

func TestHistoryEmpty(t *testing.T) {
	cfgPath, _ := tempConfig(t)
	out, err := execute(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("out=%q", out)
	}
}

func TestRunRequiresFlags(t *testing.T) {
	cfgPath, _ := tempConfig(t)
	if _, err := execute(t, "--config", cfgPath, "run", "--brief", "x.yaml"); err == nil {
		t.Fatalf("expected missing --results error")
	}
}

func TestRenderSummary(t *testing.T) {
	speaker := "Speaker 1"
	p := types.Project{
		Overview: types.Overview{TotalClips: 2, TotalDuration: 30, TranscriptionRate: 50, AnalysisRate: 50},
		Clips: []types.Clip{
			{Filename: "a.mp4", Source: "Sony", DurationSeconds: 30},
			{Filename: "b.jpg"},
		},
		Transcripts: []types.ClipTranscript{
			{Filename: "a.mp4", WordCount: 12, Language: "en"},
			{Filename: "b.jpg", Language: "unknown", Error: types.CodeEmptyTranscript},
		},
		Analysis: types.Analysis{
			Diarization: types.DiarizationAnalysis{ClipResults: map[string]types.DiarizationSummary{
				"a.mp4": {DominantSpeaker: &speaker},
			}},
			Scenes: types.SceneAnalysis{Clips: map[string]types.ClipSceneSummary{
				"a.mp4": {OverallClassification: &types.FrameAnalysis{ShotScale: "Medium Shot", SubjectFocus: "person"}, IsConsistent: true},
				"b.jpg": {Error: types.CodeMissingTimestamps},
			}},
		},
		EditPlans: []types.EditPlan{{
			Title:                    "Trip (Full cut)",
			EstimatedDurationSeconds: 20,
			Filename:                 "trip-full-cut.json",
			Sections:                 []types.Section{{Name: "Intro"}, {Name: "Outro", Clips: []types.ClipReference{{Filename: "a.mp4"}}}},
		}},
	}
	got := renderSummary(p)
	for _, want := range []string{"2 clips", "Medium Shot / person", "Speaker 1", "EmptyTranscript, MissingTimestamps", "trip-full-cut.json", "Clips with stage errors: b.jpg"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestRenderHistoryShowsFailure(t *testing.T) {
	runs := []store.Run{{
		ID:           "0123456789abcdef",
		Mode:         "analyze",
		Status:       store.RunFailed,
		ErrorMessage: "list clips: boom",
		StartedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}
	got := renderHistory(runs)
	if !strings.Contains(got, "01234567") || !strings.Contains(got, "list clips: boom") {
		t.Fatalf("history:\n%s", got)
	}
}

func TestClipErrorsMarksPartial(t *testing.T) {
	tests := []struct {
		name string
		tr   types.ClipTranscript
		d    types.DiarizationSummary
		s    types.ClipSceneSummary
		want string
	}{
		{name: "clean", want: "-"},
		{
			name: "partial transcript",
			tr:   types.ClipTranscript{Error: types.CodeTimeout, Partial: true, WordCount: 9},
			d:    types.DiarizationSummary{Error: types.CodeTimeout, Partial: true},
			s:    types.ClipSceneSummary{Error: types.CodeTimeout},
			want: "Timeout (partial), Timeout (partial), Timeout",
		},
		{
			name: "failed outright",
			tr:   types.ClipTranscript{Error: types.CodeInferenceFailed},
			want: "InferenceFailed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clipErrors(tt.tr, tt.d, tt.s); got != tt.want {
				t.Fatalf("clipErrors = %q, want %q", got, tt.want)
			}
		})
	}
}
