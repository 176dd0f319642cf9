package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/roughcut/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var resultsDir, briefPath, outDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build edit plans from recorded analysis results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absResults, err := filepath.Abs(resultsDir)
			if err != nil {
				return err
			}
			return runPipeline(cmd, ctx, pipeline.Config{
				Mode:       pipeline.ModeRun,
				ResultsDir: absResults,
				BriefPath:  briefPath,
				OutDir:     outDir,
			})
		},
	}
	cmd.Flags().StringVar(&resultsDir, "results", "", "Directory of recorded analysis results")
	cmd.Flags().StringVar(&briefPath, "brief", "", "Content brief (YAML)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to paths.out_dir)")
	_ = cmd.MarkFlagRequired("results")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var briefPath, outDir, diarizationDir string

	cmd := &cobra.Command{
		Use:   "analyze <media-dir>",
		Short: "Analyze footage with whisper.cpp and a vision model, then build edit plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absMedia, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return runPipeline(cmd, ctx, pipeline.Config{
				Mode:           pipeline.ModeAnalyze,
				MediaDir:       absMedia,
				DiarizationDir: diarizationDir,
				BriefPath:      briefPath,
				OutDir:         outDir,
			})
		},
	}
	cmd.Flags().StringVar(&briefPath, "brief", "", "Content brief (YAML)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to paths.out_dir)")
	cmd.Flags().StringVar(&diarizationDir, "diarization", "", "Recorded results directory to take speaker diarization from")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

func runPipeline(cmd *cobra.Command, cc *commandContext, pc pipeline.Config) error {
	app, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cc.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	pc.App = app
	pc.Logger = logger

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithTimeout(sigCtx, 3*time.Hour)
	defer cancel()

	out, err := pipeline.Run(runCtx, pc)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", out.RunID)
	fmt.Fprintf(w, "Project: %s\n", out.DocumentPath)
	fmt.Fprint(w, renderSummary(out.Project))
	return nil
}
