package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/roughcut/internal/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "roughcut.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRuns_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, Run{ID: "r1", Mode: "run", Source: "/data/results", BriefTitle: "Shop", StartedAt: start}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != RunRunning || !got.StartedAt.Equal(start) || !got.FinishedAt.IsZero() {
		t.Fatalf("run=%+v", got)
	}

	if err := s.FinishRun(ctx, "r1", RunOutcome{Clips: 26, AnalysisRate: 96.15, Plans: 2, DocumentPath: "/out/project.json"}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err = s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != RunCompleted || got.Clips != 26 || got.Plans != 2 || got.FinishedAt.IsZero() {
		t.Fatalf("run=%+v", got)
	}
}

func TestRuns_FailedAndMissing(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if err := s.BeginRun(ctx, Run{ID: "r1", Mode: "analyze", Source: "/media"}); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishRun(ctx, "r1", RunOutcome{Err: errors.New("disk full")}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetRun(ctx, "r1")
	if got.Status != RunFailed || got.ErrorMessage != "disk full" {
		t.Fatalf("run=%+v", got)
	}
	if err := s.FinishRun(ctx, "nope", RunOutcome{}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.BeginRun(ctx, Run{ID: id, Mode: "run", Source: "x", StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("runs=%+v", runs)
	}
}

func TestPayloads_SaveAndReplace(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if err := s.BeginRun(ctx, Run{ID: "r1", Mode: "run", Source: "x"}); err != nil {
		t.Fatal(err)
	}
	sink := RunSink{Store: s, RunID: "r1"}
	atts := []types.Attachment{
		{SegmentID: "seg_001", Payload: json.RawMessage(`{"tokens":[2]}`)},
		{SegmentID: "seg_000", Payload: json.RawMessage(`{"tokens":[1]}`)},
	}
	if err := sink.SavePayloads(ctx, "C0001.MP4", atts); err != nil {
		t.Fatalf("SavePayloads: %v", err)
	}
	if err := sink.SavePayloads(ctx, "C0001.MP4", []types.Attachment{{SegmentID: "seg_000", Payload: json.RawMessage(`{"tokens":[9]}`)}}); err != nil {
		t.Fatalf("SavePayloads replace: %v", err)
	}
	got, err := s.Payloads(ctx, "r1", "C0001.MP4")
	if err != nil {
		t.Fatalf("Payloads: %v", err)
	}
	if len(got) != 2 || got[0].SegmentID != "seg_000" || string(got[0].Payload) != `{"tokens":[9]}` {
		t.Fatalf("payloads=%+v", got)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roughcut.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRun(ctx, Run{ID: "r1", Mode: "run", Source: "x"}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetRun(ctx, "r1"); err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
}
