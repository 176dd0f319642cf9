package editplan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/types"
)

const defaultTitle = "Rough cut"

// LoadBrief reads a content brief from YAML (JSON is accepted as a subset).
func LoadBrief(path string) (types.Brief, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Brief{}, fmt.Errorf("read brief: %w", err)
	}
	var br types.Brief
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&br); err != nil {
		return types.Brief{}, fmt.Errorf("parse brief %s: %w", path, err)
	}
	if strings.TrimSpace(br.Title) == "" {
		br.Title = defaultTitle
	}
	if err := ValidateBrief(br); err != nil {
		return types.Brief{}, err
	}
	return br, nil
}

func ValidateBrief(b types.Brief) error {
	if b.TargetSeconds <= 0 {
		return errors.New("brief: target_seconds must be > 0")
	}
	if len(b.Sections) == 0 {
		return errors.New("brief: at least one section is required")
	}
	for i, s := range b.Sections {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("brief: section %d has no name", i+1)
		}
		if s.Weight < 0 {
			return fmt.Errorf("brief: section %q has negative weight", s.Name)
		}
		if s.Intent != "" {
			switch scenes.CanonicalSubject(s.Intent) {
			case scenes.FocusPerson, scenes.FocusObject, scenes.FocusEnvironment:
			default:
				return fmt.Errorf("brief: section %q has unknown intent %q", s.Name, s.Intent)
			}
		}
	}
	return nil
}

var intentKeywords = []struct {
	focus string
	words []string
}{
	{scenes.FocusPerson, []string{"intro", "introduction", "host", "interview", "presenter", "talk", "speaker", "welcome", "greeting", "testimonial", "explain", "explains", "narration", "conversation", "q&a", "opinion"}},
	{scenes.FocusObject, []string{"demo", "demonstration", "product", "showcase", "result", "results", "detail", "details", "build", "unboxing", "process", "tutorial", "step", "steps", "making", "craft", "feature", "features"}},
	{scenes.FocusEnvironment, []string{"establishing", "establish", "location", "landscape", "scenery", "aerial", "environment", "venue", "outro", "atmosphere", "city", "nature", "travel", "opening"}},
}

// sectionIntent resolves which subject focus a section wants and whether it
// carries spoken narrative. Explicit brief fields win over keyword inference;
// an empty focus means any subject is acceptable.
func sectionIntent(s types.BriefSection) (string, bool) {
	focus := ""
	if s.Intent != "" {
		focus = scenes.CanonicalSubject(s.Intent)
	} else {
		focus = inferFocus(s.Name + " " + s.Description)
	}
	narrative := focus == scenes.FocusPerson
	if s.Narrative != nil {
		narrative = *s.Narrative
	}
	return focus, narrative
}

func inferFocus(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ':' || r == ';' || r == '-' || r == '/' || r == '(' || r == ')'
	})
	best, bestHits := "", 0
	for _, k := range intentKeywords {
		hits := 0
		for _, w := range words {
			for _, kw := range k.words {
				if w == kw {
					hits++
				}
			}
		}
		// earlier entries win ties
		if hits > bestHits {
			best, bestHits = k.focus, hits
		}
	}
	return best
}
