package segments

import (
	"testing"

	"github.com/forPelevin/roughcut/internal/types"
)

func TestPlan_Windows(t *testing.T) {
	tests := []struct {
		name      string
		duration  float64
		window    float64
		overlap   float64
		wantStart []float64
		wantLast  float64
	}{
		{"shorter than window", 12, 30, 2, []float64{0}, 12},
		{"exact", 30, 30, 0, []float64{0}, 30},
		{"overlapping", 70, 30, 2, []float64{0, 28, 56}, 14},
		{"no overlap", 61, 30, 0, []float64{0, 30, 60}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := Plan("C0001.MP4", tt.duration, tt.window, tt.overlap)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(ws) != len(tt.wantStart) {
				t.Fatalf("windows=%+v", ws)
			}
			for i, w := range ws {
				if w.StartTime != tt.wantStart[i] {
					t.Fatalf("window %d start=%v want %v", i, w.StartTime, tt.wantStart[i])
				}
				if w.End() > tt.duration+1e-9 {
					t.Fatalf("window %d ends past clip: %v", i, w.End())
				}
			}
			if last := ws[len(ws)-1]; last.Duration != tt.wantLast {
				t.Fatalf("last duration=%v want %v", last.Duration, tt.wantLast)
			}
		})
	}
}

func TestPlan_IDs(t *testing.T) {
	ws, err := Plan("DJI_0042.MP4", 65, 30, 2)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if ws[0].ID != "DJI_0042_seg_000" || ws[2].ID != "DJI_0042_seg_002" {
		t.Fatalf("ids: %s %s", ws[0].ID, ws[2].ID)
	}
}

func TestPlan_InvalidArgs(t *testing.T) {
	if _, err := Plan("a", 10, 0, 0); err == nil {
		t.Fatalf("expected error for zero window")
	}
	if _, err := Plan("a", 10, 30, 30); err == nil {
		t.Fatalf("expected error for overlap >= window")
	}
	ws, err := Plan("a", 0, 30, 2)
	if err != nil || len(ws) != 0 {
		t.Fatalf("zero duration: ws=%v err=%v", ws, err)
	}
}

func TestForClip_NoAudio(t *testing.T) {
	c := types.Clip{Filename: "DSC001.ARW", DurationSeconds: 5}
	ws, err := ForClip(c, 30, 2)
	if err != nil || ws != nil {
		t.Fatalf("ws=%v err=%v", ws, err)
	}
}
