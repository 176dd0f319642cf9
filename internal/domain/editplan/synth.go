package editplan

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/textutil"
	"github.com/forPelevin/roughcut/internal/types"
)

// Variant is one alternative cut of the same brief; Scale multiplies the
// brief's target duration.
type Variant struct {
	Name  string
	Scale float64
}

// Options tunes how a brief's duration budget is spent. MainMaxSeconds
// bounds each V1 reference, so a section gets roughly
// budget/MainMaxSeconds main references.
type Options struct {
	MainMaxSeconds  float64
	MainMinSeconds  float64
	BrollMinSeconds float64
	BrollPerMain    int
	Variants        []Variant
}

func DefaultOptions() Options {
	return Options{
		MainMaxSeconds:  20,
		MainMinSeconds:  3,
		BrollMinSeconds: 1.5,
		BrollPerMain:    1,
		Variants: []Variant{
			{Name: "Full cut", Scale: 1},
			{Name: "Short cut", Scale: 0.5},
		},
	}
}

type candidate struct {
	agg         types.ClipAggregate
	name        string
	duration    float64
	focus       string
	speaker     string
	narrativeOK bool
	partial     bool
	sceneOK     bool
	consistent  bool
	confidence  float64
	salience    float64
}

func newCandidates(aggs []types.ClipAggregate) []candidate {
	out := make([]candidate, 0, len(aggs))
	for _, a := range aggs {
		c := candidate{
			agg:         a,
			name:        a.Clip.Filename,
			duration:    a.Clip.DurationSeconds,
			speaker:     a.Diarization.Dominant(),
			narrativeOK: a.Transcript.Usable() && a.Diarization.Usable(),
			partial:     a.Transcript.Partial || a.Diarization.Partial,
			sceneOK:     a.Scenes.Error == "" && a.Scenes.OverallClassification != nil,
			consistent:  a.Scenes.IsConsistent,
		}
		if c.sceneOK {
			c.focus = a.Scenes.OverallClassification.SubjectFocus
			c.confidence = a.Scenes.OverallClassification.Confidence
		}
		if c.narrativeOK {
			c.salience = salience(a.Transcript.Text)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Synthesize builds one plan per variant. Section order follows the brief and
// a section that no clip can satisfy is emitted empty with a note. Every plan
// is validated against the clip catalog; references that fail validation are
// removed and reported in the section note.
func Synthesize(brief types.Brief, aggs []types.ClipAggregate, opts Options) []types.EditPlan {
	opts = withDefaults(opts)
	cands := newCandidates(aggs)
	catalog := make(map[string]types.Clip, len(aggs))
	for _, a := range aggs {
		catalog[a.Clip.Filename] = a.Clip
	}

	plans := make([]types.EditPlan, 0, len(opts.Variants))
	for _, v := range opts.Variants {
		p := synthesizeVariant(brief, cands, opts, v)
		plans = append(plans, enforce(p, catalog))
	}
	return plans
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.MainMaxSeconds <= 0 {
		o.MainMaxSeconds = d.MainMaxSeconds
	}
	if o.MainMinSeconds <= 0 {
		o.MainMinSeconds = d.MainMinSeconds
	}
	if o.MainMinSeconds > o.MainMaxSeconds {
		o.MainMinSeconds = o.MainMaxSeconds
	}
	if o.BrollMinSeconds <= 0 {
		o.BrollMinSeconds = d.BrollMinSeconds
	}
	if o.BrollPerMain < 0 {
		o.BrollPerMain = 0
	}
	if len(o.Variants) == 0 {
		o.Variants = d.Variants
	}
	return o
}

type planState struct {
	used        map[string]int
	lastSpeaker string
}

func synthesizeVariant(brief types.Brief, cands []candidate, opts Options, v Variant) types.EditPlan {
	title := brief.Title
	if v.Name != "" {
		title = fmt.Sprintf("%s (%s)", brief.Title, v.Name)
	}
	plan := types.EditPlan{
		Title:    title,
		Filename: textutil.Slug(title) + ".json",
		Sections: make([]types.Section, 0, len(brief.Sections)),
	}

	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	target := brief.TargetSeconds * scale

	var totalWeight float64
	for _, s := range brief.Sections {
		totalWeight += weightOf(s)
	}

	st := &planState{used: map[string]int{}}
	for _, bs := range brief.Sections {
		budget := target * weightOf(bs) / totalWeight
		sec := buildSection(bs, budget, cands, opts, st)
		for _, r := range sec.Clips {
			if r.Role == types.RoleMain {
				plan.EstimatedDurationSeconds += r.Duration()
			}
		}
		plan.Sections = append(plan.Sections, sec)
	}
	plan.EstimatedDurationSeconds = math.Round(plan.EstimatedDurationSeconds*1000) / 1000
	return plan
}

func weightOf(s types.BriefSection) float64 {
	if s.Weight > 0 {
		return s.Weight
	}
	return 1
}

func buildSection(bs types.BriefSection, budget float64, cands []candidate, opts Options, st *planState) types.Section {
	sec := types.Section{Name: bs.Name, Description: bs.Description, Clips: []types.ClipReference{}}
	focus, narrative := sectionIntent(bs)

	minLen := math.Min(opts.MainMinSeconds, budget)
	if minLen <= 0 {
		sec.Note = "no duration budget for this section"
		return sec
	}

	tried := map[string]bool{}
	cursor, remaining := 0.0, budget
	mains, brolls := 0, 0
	for remaining+1e-9 >= minLen {
		c, ok := pickMain(cands, focus, narrative, st, tried)
		if !ok {
			break
		}
		tried[c.name] = true

		length := math.Min(math.Min(remaining, opts.MainMaxSeconds), c.duration)
		if length < minLen {
			continue
		}
		start := visualWindow(c.agg.Scenes, length, c.duration)
		if narrative {
			if s, ok := speechWindow(c.agg.Transcript.Lines, length, c.duration); ok {
				start = s
			}
		}
		s, e, ok := fitWindow(start, length, c.duration)
		if !ok {
			continue
		}

		sec.Clips = append(sec.Clips, types.ClipReference{
			Filename:        c.name,
			Role:            types.RoleMain,
			StartSeconds:    s,
			EndSeconds:      e,
			Track:           types.TrackV1,
			TimelineSeconds: round3(cursor),
			Note:            mainNote(c, focus, narrative),
		})
		mains++
		st.used[c.name]++
		if narrative && c.speaker != "" {
			st.lastSpeaker = c.speaker
		}

		for _, b := range placeBroll(cands, c.name, focus, cursor, e-s, opts, st) {
			sec.Clips = append(sec.Clips, b)
			brolls++
		}

		cursor += e - s
		remaining -= e - s
	}

	if mains == 0 {
		sec.Note = "no eligible clip: " + unmetReason(focus, narrative)
		return sec
	}
	sec.Note = fmt.Sprintf("intent=%s narrative=%t main=%d broll=%d", focusLabel(focus), narrative, mains, brolls)
	return sec
}

// pickMain returns the best untried clip for V1. Narrative sections only take
// clips with a usable transcript and a detected speaker, preferring complete
// ones over partial; others need a scene summary. Clips lacking that evidence
// remain available as broll.
func pickMain(cands []candidate, focus string, narrative bool, st *planState, tried map[string]bool) (candidate, bool) {
	best, bestScore, found := candidate{}, math.Inf(-1), false
	for _, c := range cands {
		if tried[c.name] || c.duration <= 0 {
			continue
		}
		if narrative && !c.narrativeOK {
			continue
		}
		if !narrative && !c.sceneOK {
			continue
		}
		s := focusScore(c, focus, 3, -1)
		if narrative {
			if st.lastSpeaker != "" && c.speaker == st.lastSpeaker {
				s += 2
			}
			s += c.salience
			if c.partial {
				s -= 2
			}
		}
		if c.consistent {
			s += 0.5
		}
		s += c.confidence
		s -= 1.5 * float64(st.used[c.name])
		if s > bestScore {
			best, bestScore, found = c, s, true
		}
	}
	return best, found
}

// placeBroll lays up to BrollPerMain V2 references under one main window,
// splitting the window evenly between them.
func placeBroll(cands []candidate, mainName, focus string, at, length float64, opts Options, st *planState) []types.ClipReference {
	if opts.BrollPerMain == 0 || length < opts.BrollMinSeconds {
		return nil
	}
	want := brollFocus(focus)
	slot := length / float64(opts.BrollPerMain)
	if slot < opts.BrollMinSeconds {
		slot = length
	}

	var out []types.ClipReference
	taken := map[string]bool{mainName: true}
	for off := 0.0; off+slot <= length+1e-9 && len(out) < opts.BrollPerMain; off += slot {
		c, ok := pickBroll(cands, want, taken, st, opts.BrollMinSeconds)
		if !ok {
			break
		}
		taken[c.name] = true
		l := math.Min(slot, c.duration)
		s, e, ok := fitWindow(visualWindow(c.agg.Scenes, l, c.duration), l, c.duration)
		if !ok {
			continue
		}
		st.used[c.name]++
		out = append(out, types.ClipReference{
			Filename:        c.name,
			Role:            types.RoleBroll,
			StartSeconds:    s,
			EndSeconds:      e,
			Track:           types.TrackV2,
			TimelineSeconds: round3(at + off),
			Note:            brollNote(c),
		})
	}
	return out
}

func pickBroll(cands []candidate, want []string, taken map[string]bool, st *planState, minLen float64) (candidate, bool) {
	best, bestScore, found := candidate{}, math.Inf(-1), false
	for _, c := range cands {
		if taken[c.name] || c.duration < minLen {
			continue
		}
		s := 0.0
		if c.sceneOK {
			for _, f := range want {
				if c.focus == f {
					s += 2
					break
				}
			}
			s += c.confidence
		}
		if c.consistent {
			s += 0.5
		}
		s -= float64(st.used[c.name])
		if s > bestScore {
			best, bestScore, found = c, s, true
		}
	}
	return best, found
}

// brollFocus picks cutaway subjects: people sections cut away to objects and
// surroundings, visual sections keep their own subject.
func brollFocus(focus string) []string {
	switch focus {
	case scenes.FocusPerson, "":
		return []string{scenes.FocusObject, scenes.FocusEnvironment}
	default:
		return []string{focus}
	}
}

func focusScore(c candidate, focus string, match, mismatch float64) float64 {
	switch {
	case focus == "" || !c.sceneOK:
		return 0
	case c.focus == focus:
		return match
	default:
		return mismatch
	}
}

func mainNote(c candidate, focus string, narrative bool) string {
	var parts []string
	if c.sceneOK {
		parts = append(parts, "focus="+c.focus)
		if focus != "" && c.focus == focus {
			parts = append(parts, "matches intent")
		}
	}
	if narrative && c.speaker != "" {
		parts = append(parts, "speaker="+c.speaker)
	}
	return strings.Join(parts, "; ")
}

func brollNote(c candidate) string {
	if !c.sceneOK {
		return "visual only; scene evidence unavailable"
	}
	if !c.narrativeOK {
		return "visual only; focus=" + c.focus
	}
	return "cutaway; focus=" + c.focus
}

func unmetReason(focus string, narrative bool) string {
	if narrative {
		return "needs a clip with transcribed speech and a detected speaker"
	}
	if focus != "" {
		return fmt.Sprintf("needs a clip with a scene summary (preferred focus %s)", focus)
	}
	return "needs a clip with a scene summary"
}

func focusLabel(focus string) string {
	if focus == "" {
		return "any"
	}
	return focus
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
