package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/forPelevin/roughcut/internal/config"
	"github.com/forPelevin/roughcut/internal/store"
	"github.com/forPelevin/roughcut/internal/types"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "My Cool.Trip (v2)", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-trip-v2-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-trip-v2-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
	if b := filepath.Base(buildRunOutDir("out", "___", now)); !strings.HasPrefix(b, "project-") {
		t.Fatalf("empty slug should fall back to project: %s", b)
	}
}

func TestPlanOptions(t *testing.T) {
	p := config.Default().Plan
	p.MainClipMaxSeconds = 12
	p.Variants = []config.Variant{{Name: "Teaser", Scale: 0.2}}
	opts := PlanOptions(p)
	if opts.MainMaxSeconds != 12 || opts.MainMinSeconds != 3 {
		t.Fatalf("opts=%+v", opts)
	}
	if len(opts.Variants) != 1 || opts.Variants[0].Name != "Teaser" {
		t.Fatalf("variants=%+v", opts.Variants)
	}
}

func TestConfigValidate(t *testing.T) {
	app := config.Default()
	brief := writeFile(t, t.TempDir(), "brief.yaml", testBrief)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"nil app", Config{Mode: ModeRun, BriefPath: brief, ResultsDir: t.TempDir()}},
		{"no brief", Config{Mode: ModeRun, App: &app, ResultsDir: t.TempDir()}},
		{"no catalog", Config{Mode: ModeRun, App: &app, BriefPath: brief, ResultsDir: t.TempDir()}},
		{"analyze without key", Config{Mode: ModeAnalyze, App: &app, BriefPath: brief, MediaDir: t.TempDir()}},
		{"unknown mode", Config{Mode: "render", App: &app, BriefPath: brief}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

const testBrief = `
title: Lake Day
target_seconds: 40
sections:
  - name: Intro
    description: Host introduces the trip
  - name: Scenery
    description: Aerial landscape of the lake
`

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

func resultsFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "catalog.json", `[
		{"filename": "C0001.MP4", "source": "Sony", "duration_seconds": 45,
		 "audio": {"codec": "aac", "sample_rate": 48000, "channels": 2}},
		{"filename": "DJI_0001.MP4", "duration_seconds": 30},
		{"filename": "DSC001.ARW", "duration_seconds": 0},
		{"filename": "_summary"}
	]`)
	writeFile(t, root, "segments/C0001.MP4.json", `[
		{"id": "c1_0", "start_time": 0, "duration": 30,
		 "transcription": {"language": "en", "text": "hello and welcome to the lake",
		   "segments": [{"start": 0, "end": 4, "text": "hello and welcome to the lake", "no_speech_prob": 0.01}]},
		 "diarization": {"speakers_detected": ["Speaker 1"]}},
		{"id": "c1_1", "start_time": 28, "duration": 17,
		 "transcription": {"language": "en", "text": "the lake is calm today",
		   "segments": [{"start": 0, "end": 3, "text": "the lake is calm today", "no_speech_prob": 0.02}]},
		 "diarization": {"speakers_detected": ["Speaker 1"]}}
	]`)
	writeFile(t, root, "scenes/C0001.MP4.json", `[
		{"shot_scale": "MS", "shot_movement": "static", "subject_focus": "person", "confidence": 0.9, "timestamp": 11.25},
		{"shot_scale": "Medium Shot", "shot_movement": "static", "subject_focus": "person", "confidence": 0.8, "timestamp": 22.5}
	]`)
	writeFile(t, root, "scenes/DJI_0001.MP4.json", `[
		{"shot_scale": "WS", "shot_movement": "pan", "subject_focus": "environment", "confidence": 0.95, "timestamp": 15}
	]`)
	writeFile(t, root, "scenes/DSC001.ARW.json", `{"error": "MissingTimestamps"}`)
	return root
}

func testConfig(t *testing.T) (Config, *config.Config) {
	t.Helper()
	tmp := t.TempDir()
	app := config.Default()
	app.Paths.OutDir = filepath.Join(tmp, "out")
	app.Paths.CacheDir = filepath.Join(tmp, "cache")
	app.Paths.StateDB = filepath.Join(tmp, "state", "roughcut.db")
	return Config{
		Mode:       ModeRun,
		BriefPath:  writeFile(t, tmp, "brief.yaml", testBrief),
		ResultsDir: resultsFixture(t),
		App:        &app,
	}, &app
}

func TestRun_RecordedResultsWritesBundle(t *testing.T) {
	cfg, app := testConfig(t)
	out, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.RunID == "" || out.Project.RunID != out.RunID {
		t.Fatalf("run id not propagated: %+v", out)
	}
	if filepath.Dir(out.Dir) != app.Paths.OutDir || !strings.HasPrefix(filepath.Base(out.Dir), "lake-day-") {
		t.Fatalf("dir=%s", out.Dir)
	}

	b, err := os.ReadFile(out.DocumentPath)
	if err != nil {
		t.Fatalf("read project: %v", err)
	}
	var doc types.Project
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if doc.Overview.TotalClips != 3 || doc.Overview.AnalyzedClips != 2 {
		t.Fatalf("overview=%+v", doc.Overview)
	}
	if doc.Analysis.Scenes.Clips["DSC001.ARW"].Error != types.CodeMissingTimestamps {
		t.Fatalf("still image scene=%+v", doc.Analysis.Scenes.Clips["DSC001.ARW"])
	}
	if len(doc.EditPlans) != 2 {
		t.Fatalf("plans=%d", len(doc.EditPlans))
	}
	for _, p := range doc.EditPlans {
		if _, err := os.Stat(filepath.Join(out.Dir, "plans", p.Filename)); err != nil {
			t.Fatalf("plan file: %v", err)
		}
		ass, err := os.ReadFile(filepath.Join(out.Dir, "plans", trimExt(p.Filename)+".ass"))
		if err != nil {
			t.Fatalf("captions: %v", err)
		}
		if !strings.Contains(string(ass), "[Events]") {
			t.Fatalf("captions missing events section")
		}
	}

	st, err := store.Open(app.Paths.StateDB)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	run, err := st.GetRun(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunCompleted || run.Clips != 3 || run.Plans != 2 || run.DocumentPath != out.DocumentPath {
		t.Fatalf("run=%+v", run)
	}
	payloads, err := st.Payloads(context.Background(), out.RunID, "C0001.MP4")
	if err != nil {
		t.Fatalf("Payloads: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("payloads=%d", len(payloads))
	}
}

func TestRun_RefusesLockedOutput(t *testing.T) {
	cfg, app := testConfig(t)
	if err := os.MkdirAll(app.Paths.OutDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(app.Paths.OutDir, ".roughcut.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := Run(context.Background(), cfg); !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("err=%v want ErrOutputLocked", err)
	}
}

func TestRun_FailureIsRecorded(t *testing.T) {
	cfg, app := testConfig(t)
	writeFile(t, cfg.ResultsDir, "catalog.json", `{"not": "an array"}`)
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for malformed catalog")
	}
	st, err := store.Open(app.Paths.StateDB)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunFailed || runs[0].ErrorMessage == "" {
		t.Fatalf("runs=%+v", runs)
	}
}
