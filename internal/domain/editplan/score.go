package editplan

import (
	"regexp"
	"strings"
)

var (
	reNum     = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook    = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember|finally|look\s+at)\b`)
	reHow     = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|next|do\s+this)\b`)
	reStepNum = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
	reGreet   = regexp.MustCompile(`(?i)\b(welcome|hi|hello|my\s+name\s+is|i\s+am|i'm|today\s+we)\b`)
)

// Score returns (info, hook) in range [0..10] for a spoken passage.
func Score(text string) (float64, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}
	lower := strings.ToLower(t)

	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}
	// small length penalty
	info -= 0.0006 * float64(len([]rune(t)))

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(len(reStepNum.FindAllStringIndex(lower, -1))) * 0.4
	hook += float64(len(reGreet.FindAllStringIndex(lower, -1))) * 0.6
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.3

	return clamp(info, 0, 10), clamp(hook, 0, 10)
}

// salience folds Score into [0..1].
func salience(text string) float64 {
	info, hook := Score(text)
	return (info + hook) / 20
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
