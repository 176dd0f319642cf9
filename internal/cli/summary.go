package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/roughcut/internal/domain/overview"
	"github.com/forPelevin/roughcut/internal/types"
)

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "summary <project.json>",
		Short:       "Print clip and edit plan tables for a project document",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read project: %w", err)
			}
			var p types.Project
			if err := json.Unmarshal(b, &p); err != nil {
				return fmt.Errorf("parse project %s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(p))
			return nil
		},
	}
}

func renderSummary(p types.Project) string {
	var b strings.Builder
	ov := p.Overview
	fmt.Fprintf(&b, "%d clips, %s total, transcribed %.1f%%, analyzed %.1f%%\n",
		ov.TotalClips, seconds(ov.TotalDuration), ov.TranscriptionRate, ov.AnalysisRate)

	trs := make(map[string]types.ClipTranscript, len(p.Transcripts))
	for _, t := range p.Transcripts {
		trs[t.Filename] = t
	}
	rows := make([][]string, 0, len(p.Clips))
	for _, c := range p.Clips {
		tr := trs[c.Filename]
		d := p.Analysis.Diarization.ClipResults[c.Filename]
		sc := p.Analysis.Scenes.Clips[c.Filename]
		rows = append(rows, []string{
			c.Filename,
			orDash(c.Source),
			seconds(c.DurationSeconds),
			fmt.Sprintf("%d", tr.WordCount),
			orDash(tr.Language),
			orDash(d.Dominant()),
			sceneLabel(sc),
			clipErrors(tr, d, sc),
		})
	}
	b.WriteString(renderTable(
		[]string{"Clip", "Source", "Duration", "Words", "Lang", "Speaker", "Scene", "Errors"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
	b.WriteString("\n")

	planRows := make([][]string, 0, len(p.EditPlans))
	for _, pl := range p.EditPlans {
		refs, empty := 0, 0
		for _, s := range pl.Sections {
			refs += len(s.Clips)
			if len(s.Clips) == 0 {
				empty++
			}
		}
		planRows = append(planRows, []string{
			pl.Title,
			seconds(pl.EstimatedDurationSeconds),
			fmt.Sprintf("%d", len(pl.Sections)),
			fmt.Sprintf("%d", refs),
			fmt.Sprintf("%d", empty),
			pl.Filename,
		})
	}
	b.WriteString(renderTable(
		[]string{"Plan", "Duration", "Sections", "Refs", "Empty", "File"},
		planRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	b.WriteString("\n")

	if failed := overview.Failures(p); len(failed) > 0 {
		fmt.Fprintf(&b, "Clips with stage errors: %s\n", strings.Join(failed, ", "))
	}
	return b.String()
}

func sceneLabel(s types.ClipSceneSummary) string {
	if s.Error != "" || s.OverallClassification == nil {
		return "-"
	}
	label := s.OverallClassification.ShotScale
	if f := s.OverallClassification.SubjectFocus; f != "" {
		label += " / " + f
	}
	if !s.IsConsistent {
		label += " (mixed)"
	}
	return label
}

func clipErrors(tr types.ClipTranscript, d types.DiarizationSummary, s types.ClipSceneSummary) string {
	var codes []string
	add := func(c types.ErrorCode, partial bool) {
		switch {
		case c == "":
		case partial:
			codes = append(codes, string(c)+" (partial)")
		default:
			codes = append(codes, string(c))
		}
	}
	add(tr.Error, tr.Partial)
	add(d.Error, d.Partial)
	add(s.Error, false)
	if len(codes) == 0 {
		return "-"
	}
	return strings.Join(codes, ", ")
}

func seconds(v float64) string {
	return fmt.Sprintf("%.1fs", v)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
