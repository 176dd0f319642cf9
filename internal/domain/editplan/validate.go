package editplan

import (
	"fmt"
	"math"
	"sort"

	"github.com/forPelevin/roughcut/internal/types"
)

// timeEps absorbs rounding in timeline placement only; source ranges are
// checked exactly against the clip duration.
const timeEps = 1e-3

// Violation describes one clip reference that cannot be cut as written.
type Violation struct {
	Section  string `json:"section"`
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s[%d] %s: %s", v.Section, v.Index, v.Filename, v.Reason)
}

// Validate checks a plan against the clip catalog. A reference must name a
// known clip, stay inside [0, duration], pair main with V1 and broll with V2,
// and broll must sit under a main window. Main references may not overlap on
// the timeline.
func Validate(plan types.EditPlan, catalog map[string]types.Clip) []Violation {
	var out []Violation
	for _, sec := range plan.Sections {
		out = append(out, validateSection(sec, catalog)...)
	}
	return out
}

func validateSection(sec types.Section, catalog map[string]types.Clip) []Violation {
	var out []Violation
	bad := func(i int, r types.ClipReference, format string, args ...any) {
		out = append(out, Violation{Section: sec.Name, Index: i, Filename: r.Filename, Reason: fmt.Sprintf(format, args...)})
	}

	type span struct {
		idx        int
		start, end float64
	}
	var mains []span
	for i, r := range sec.Clips {
		clip, ok := catalog[r.Filename]
		if !ok {
			bad(i, r, "clip not in catalog")
			continue
		}
		if r.StartSeconds < 0 || r.EndSeconds <= r.StartSeconds || r.EndSeconds > clip.DurationSeconds ||
			math.IsNaN(r.StartSeconds) || math.IsNaN(r.EndSeconds) {
			bad(i, r, "range %.3f-%.3f outside clip duration %.3f", r.StartSeconds, r.EndSeconds, clip.DurationSeconds)
			continue
		}
		switch {
		case r.Role == types.RoleMain && r.Track == types.TrackV1:
			mains = append(mains, span{i, r.TimelineSeconds, r.TimelineSeconds + r.Duration()})
		case r.Role == types.RoleBroll && r.Track == types.TrackV2:
		default:
			bad(i, r, "role %q cannot be placed on track %q", r.Role, r.Track)
		}
		if r.TimelineSeconds < 0 {
			bad(i, r, "negative timeline position %.3f", r.TimelineSeconds)
		}
	}

	sort.SliceStable(mains, func(a, b int) bool { return mains[a].start < mains[b].start })
	for k := 1; k < len(mains); k++ {
		if mains[k].start < mains[k-1].end-timeEps {
			r := sec.Clips[mains[k].idx]
			bad(mains[k].idx, r, "overlaps previous main reference on V1")
		}
	}

	for i, r := range sec.Clips {
		if r.Role != types.RoleBroll || r.Track != types.TrackV2 {
			continue
		}
		if _, ok := catalog[r.Filename]; !ok {
			continue
		}
		start, end := r.TimelineSeconds, r.TimelineSeconds+r.Duration()
		covered := false
		for _, m := range mains {
			if start >= m.start-timeEps && end <= m.end+timeEps {
				covered = true
				break
			}
		}
		if !covered {
			bad(i, r, "broll at %.3f-%.3f is not under a main reference", start, end)
		}
	}
	return out
}

// enforce drops references that fail validation and records them in the
// section note, then recomputes the estimated duration.
func enforce(plan types.EditPlan, catalog map[string]types.Clip) types.EditPlan {
	plan.EstimatedDurationSeconds = 0
	for si := range plan.Sections {
		sec := &plan.Sections[si]
		drop := map[int]bool{}
		for _, v := range validateSection(*sec, catalog) {
			drop[v.Index] = true
		}
		if len(drop) > 0 {
			kept := make([]types.ClipReference, 0, len(sec.Clips))
			for i, r := range sec.Clips {
				if !drop[i] {
					kept = append(kept, r)
				}
			}
			sec.Clips = kept
			note := fmt.Sprintf("dropped %d invalid reference(s)", len(drop))
			if sec.Note != "" {
				note = sec.Note + "; " + note
			}
			sec.Note = note
		}
		for _, r := range sec.Clips {
			if r.Role == types.RoleMain {
				plan.EstimatedDurationSeconds += r.Duration()
			}
		}
	}
	plan.EstimatedDurationSeconds = round3(plan.EstimatedDurationSeconds)
	return plan
}
