package editplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/types"
)

func writeBrief(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "brief.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadBrief_YAML(t *testing.T) {
	p := writeBrief(t, `
target_seconds: 90
sections:
  - name: Intro
    description: Host says hello
  - name: Build
    intent: object
    weight: 2
`)
	br, err := LoadBrief(p)
	if err != nil {
		t.Fatalf("LoadBrief: %v", err)
	}
	if br.Title != "Rough cut" {
		t.Fatalf("title=%q", br.Title)
	}
	if br.TargetSeconds != 90 || len(br.Sections) != 2 || br.Sections[1].Weight != 2 {
		t.Fatalf("brief=%+v", br)
	}
}

func TestLoadBrief_RejectsUnknownFields(t *testing.T) {
	p := writeBrief(t, "target_seconds: 10\nsections: [{name: a}]\nbogus: 1\n")
	if _, err := LoadBrief(p); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestValidateBrief_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    types.Brief
	}{
		{"no target", types.Brief{Sections: []types.BriefSection{{Name: "a"}}}},
		{"no sections", types.Brief{TargetSeconds: 10}},
		{"unnamed", types.Brief{TargetSeconds: 10, Sections: []types.BriefSection{{Name: " "}}}},
		{"negative weight", types.Brief{TargetSeconds: 10, Sections: []types.BriefSection{{Name: "a", Weight: -1}}}},
		{"bad intent", types.Brief{TargetSeconds: 10, Sections: []types.BriefSection{{Name: "a", Intent: "spaceship"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateBrief(tt.b); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSectionIntent(t *testing.T) {
	no := false
	tests := []struct {
		name      string
		s         types.BriefSection
		focus     string
		narrative bool
	}{
		{"explicit", types.BriefSection{Name: "x", Intent: "Environment"}, scenes.FocusEnvironment, false},
		{"host keyword", types.BriefSection{Name: "Intro", Description: "host welcome"}, scenes.FocusPerson, true},
		{"demo keyword", types.BriefSection{Name: "Demo", Description: "product details"}, scenes.FocusObject, false},
		{"aerial keyword", types.BriefSection{Name: "Opening", Description: "aerial scenery"}, scenes.FocusEnvironment, false},
		{"no hint", types.BriefSection{Name: "Middle"}, "", false},
		{"narrative override", types.BriefSection{Name: "Interview", Narrative: &no}, scenes.FocusPerson, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, n := sectionIntent(tt.s)
			if f != tt.focus || n != tt.narrative {
				t.Fatalf("got (%q,%v) want (%q,%v)", f, n, tt.focus, tt.narrative)
			}
		})
	}
}
