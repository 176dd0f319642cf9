// Package subtitles renders a caption track for an edit plan's V1 timeline.
package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/roughcut/internal/types"
)

// RenderPlanASS builds an ASS caption file for the plan. Sections play back to
// back, each lasting as long as its main references. Captions come from the
// transcript lines that fall inside each main reference's trim and are shifted
// onto the plan timeline. Section names are shown as a title card at the
// start of each non-empty section.
func RenderPlanASS(plan types.EditPlan, transcripts map[string]types.ClipTranscript) string {
	var titles []event
	var words []wword
	var offset time.Duration
	for _, sec := range plan.Sections {
		var secLen time.Duration
		for _, r := range sec.Clips {
			if r.Role != types.RoleMain {
				continue
			}
			at := offset + dur(r.TimelineSeconds)
			if end := at + dur(r.Duration()) - offset; end > secLen {
				secLen = end
			}
			tr, ok := transcripts[r.Filename]
			if !ok {
				continue
			}
			words = append(words, collectWords(tr.Lines, dur(r.StartSeconds), dur(r.EndSeconds), at)...)
		}
		if secLen > 0 {
			titles = append(titles, event{Start: offset, End: offset + min(secLen, titleCard), Text: sanitizeASS(sec.Name)})
		}
		offset += secLen
	}

	var lines []line
	if len(words) > 0 {
		lines = packWords(words)
	}
	return renderASS(titles, lines)
}

const titleCard = 2500 * time.Millisecond

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

type event struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// collectWords clips transcript lines to [start, end) in clip time and places
// them at the given timeline offset. Lines carry no per-word timing, so each
// word gets a share of its line proportional to its length.
func collectWords(lines []types.TimedText, start, end, at time.Duration) []wword {
	var out []wword
	for _, ln := range lines {
		ls, le := dur(ln.Start), dur(ln.End)
		if le <= start || ls >= end || le <= ls {
			continue
		}
		fields := strings.Fields(ln.Text)
		if len(fields) == 0 {
			continue
		}
		total := 0
		for _, f := range fields {
			total += len([]rune(f))
		}
		span := le - ls
		cur := ls
		for _, f := range fields {
			we := cur + span*time.Duration(len([]rune(f)))/time.Duration(total)
			ws := cur
			cur = we
			if we <= start || ws >= end {
				continue
			}
			if ws < start {
				ws = start
			}
			if we > end {
				we = end
			}
			out = append(out, wword{Start: at + ws - start, End: at + we - start, Text: sanitizeASS(f)})
		}
	}
	return out
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	charBudget := 48
	wordBudget := 10
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		// a jump between main references also starts a new line
		gap := len(cur.Words) > 0 && w.Start-cur.Words[len(cur.Words)-1].End > 500*time.Millisecond
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget || gap) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderASS(titles []event, lines []line) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, t := range titles {
		fmt.Fprintf(&b, "Dialogue: 1,%s,%s,Section,,0,0,0,,%s\n", assTime(t.Start), assTime(t.End), t.Text)
	}
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Caption,,0,0,0,,")
		for i, w := range ln.Words {
			durCS := int((w.End - w.Start) / (10 * time.Millisecond))
			if durCS < 1 {
				durCS = 1
			}
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "{\\k%d}%s", durCS, w.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, 56, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,4,1,2, 120,120,60,1
Style: Section, Inter, 44, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,3,1,8, 80,80,50,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
