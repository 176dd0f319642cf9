package transcript

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/roughcut/internal/types"
)

const (
	unknownLanguage = "unknown"
	// Upper bound on how many trailing tokens are compared when trimming the
	// overlap between consecutive windows.
	maxOverlapTokens = 64
)

// Merge folds the ordered transcription results of one clip into a single
// transcript. Words repeated at the head of a window that overlaps its
// predecessor are dropped once. A clip without speech yields an empty record
// carrying CodeEmptyTranscript; that is a result, not a failure.
func Merge(filename string, segs []types.Segment) types.ClipTranscript {
	out := types.ClipTranscript{Filename: filename, Language: unknownLanguage}

	var (
		words      []string
		normalized []string
		lines      []types.TimedText

		prevEnd  float64
		havePrev bool

		bestNoSpeech = math.Inf(1)
		logprobSum   float64
		logprobN     int
	)

	for _, seg := range ordered(segs) {
		end := segmentEnd(seg)
		if end > out.Duration {
			out.Duration = end
		}

		subs := subSegments(seg.Transcription)
		if !hasSpeech(subs) {
			continue
		}
		out.Segments++

		if lang := strings.TrimSpace(seg.Transcription.Language); lang != "" {
			// strict comparison keeps the earliest segment on ties
			if ns := meanNoSpeech(subs); ns < bestNoSpeech {
				bestNoSpeech = ns
				out.Language = lang
			}
		}

		overlaps := havePrev && seg.StartTime < prevEnd
		first := true
		for _, sub := range subs {
			toks := strings.Fields(sub.Text)
			if len(toks) == 0 {
				continue
			}
			if first && overlaps {
				toks = toks[overlapLen(normalized, toks):]
			}
			first = false

			logprobSum += sub.AvgLogprob
			logprobN++

			if len(toks) == 0 {
				continue
			}
			for _, tok := range toks {
				words = append(words, tok)
				normalized = append(normalized, NormalizeToken(tok))
			}
			lines = append(lines, types.TimedText{
				Start: seg.StartTime + sub.Start,
				End:   seg.StartTime + sub.End,
				Text:  strings.Join(toks, " "),
			})
		}

		prevEnd = end
		havePrev = true
	}

	if len(words) == 0 {
		out.Language = unknownLanguage
		out.Error = types.CodeEmptyTranscript
		return out
	}

	out.Text = strings.Join(words, " ")
	out.WordCount = len(strings.Fields(out.Text))
	out.Lines = lines
	if logprobN > 0 {
		out.AvgLogprob = logprobSum / float64(logprobN)
	}
	return out
}

// NormalizeToken folds case, compatibility forms and surrounding punctuation
// so "Hello," and "hello" compare equal.
func NormalizeToken(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return cases.Fold().String(s)
}

// overlapLen returns the largest k such that the last k entries of prior
// equal the first k tokens of head after normalisation.
func overlapLen(prior []string, head []string) int {
	limit := min(len(prior), len(head), maxOverlapTokens)
	if limit == 0 {
		return 0
	}
	headNorm := make([]string, limit)
	for i := 0; i < limit; i++ {
		headNorm[i] = NormalizeToken(head[i])
	}
	for k := limit; k > 0; k-- {
		tail := prior[len(prior)-k:]
		match := true
		for i := 0; i < k; i++ {
			if tail[i] == "" || tail[i] != headNorm[i] {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

func ordered(segs []types.Segment) []types.Segment {
	out := make([]types.Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// subSegments falls back to one span covering the whole window when the
// engine reported only flat text.
func subSegments(tr types.TranscriptionResult) []types.SubSegment {
	if len(tr.Segments) > 0 {
		return tr.Segments
	}
	if strings.TrimSpace(tr.Text) == "" {
		return nil
	}
	return []types.SubSegment{{Start: 0, End: tr.Duration, Text: tr.Text}}
}

func hasSpeech(subs []types.SubSegment) bool {
	for _, s := range subs {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

func meanNoSpeech(subs []types.SubSegment) float64 {
	if len(subs) == 0 {
		return 1
	}
	var sum float64
	for _, s := range subs {
		sum += s.NoSpeechProb
	}
	return sum / float64(len(subs))
}

func segmentEnd(seg types.Segment) float64 {
	switch {
	case seg.Duration > 0:
		return seg.End()
	case seg.Transcription.Duration > 0:
		return seg.StartTime + seg.Transcription.Duration
	}
	var end float64
	for _, s := range seg.Transcription.Segments {
		if s.End > end {
			end = s.End
		}
	}
	return seg.StartTime + end
}
