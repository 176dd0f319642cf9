package scenes

import (
	"github.com/forPelevin/roughcut/internal/types"
)

// Summarize reduces the sampled classifications of one clip to a single
// representative frame plus per-attribute consistency flags. Labels are
// canonicalised before comparison; the representative carries canonical
// labels too.
func Summarize(frames []types.FrameAnalysis) types.ClipSceneSummary {
	if len(frames) == 0 {
		return types.ClipSceneSummary{Timestamps: []float64{}, Error: types.CodeMissingTimestamps}
	}

	canon := make([]types.FrameAnalysis, len(frames))
	scaleCount := map[string]int{}
	moveCount := map[string]int{}
	subjectCount := map[string]int{}
	timestamps := make([]float64, 0, len(frames))
	for i, f := range frames {
		c := f
		c.ShotScale = CanonicalShotScale(f.ShotScale)
		c.ShotMovement = CanonicalMovement(f.ShotMovement)
		c.SubjectFocus = CanonicalSubject(f.SubjectFocus)
		canon[i] = c
		scaleCount[c.ShotScale]++
		moveCount[c.ShotMovement]++
		subjectCount[c.SubjectFocus]++
		timestamps = append(timestamps, f.Timestamp)
	}

	best := 0
	for i := 1; i < len(canon); i++ {
		if betterRepresentative(canon[i], canon[best], scaleCount, subjectCount, moveCount) {
			best = i
		}
	}
	overall := canon[best]

	cons := types.SceneConsistency{
		ShotScale: len(scaleCount) == 1,
		Movement:  len(moveCount) == 1,
		Subject:   len(subjectCount) == 1,
	}
	return types.ClipSceneSummary{
		OverallClassification: &overall,
		Consistency:           cons,
		IsConsistent:          cons.ShotScale && cons.Movement && cons.Subject,
		Timestamps:            timestamps,
	}
}

// betterRepresentative orders by confidence, then by how common the frame's
// shot scale, subject and movement are among the samples, then by earliest
// timestamp. Equal candidates keep the earlier sample.
func betterRepresentative(a, b types.FrameAnalysis, scale, subject, move map[string]int) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if x, y := scale[a.ShotScale], scale[b.ShotScale]; x != y {
		return x > y
	}
	if x, y := subject[a.SubjectFocus], subject[b.SubjectFocus]; x != y {
		return x > y
	}
	if x, y := move[a.ShotMovement], move[b.ShotMovement]; x != y {
		return x > y
	}
	return a.Timestamp < b.Timestamp
}
