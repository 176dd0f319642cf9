package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/roughcut/internal/config"
	"github.com/forPelevin/roughcut/internal/domain/editplan"
	"github.com/forPelevin/roughcut/internal/logging"
	"github.com/forPelevin/roughcut/internal/ports"
	"github.com/forPelevin/roughcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/roughcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/roughcut/internal/ports/adapters/resultsdir"
	"github.com/forPelevin/roughcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/roughcut/internal/store"
	"github.com/forPelevin/roughcut/internal/textutil"
	"github.com/forPelevin/roughcut/internal/types"
	"github.com/forPelevin/roughcut/internal/usecase"
)

type Mode string

const (
	// ModeRun consumes recorded inference results.
	ModeRun Mode = "run"
	// ModeAnalyze probes media and calls the live collaborators.
	ModeAnalyze Mode = "analyze"
)

// ErrOutputLocked is returned when another run holds the output directory.
var ErrOutputLocked = errors.New("output directory is locked by another run")

type Config struct {
	Mode      Mode
	BriefPath string

	// ResultsDir is the recorded results root (ModeRun).
	ResultsDir string
	// MediaDir is scanned for clips (ModeAnalyze).
	MediaDir string
	// DiarizationDir optionally supplies recorded diarization in ModeAnalyze.
	DiarizationDir string

	// OutDir overrides App.Paths.OutDir when set.
	OutDir string

	App    *config.Config
	Logger *slog.Logger
}

func (c Config) Validate() error {
	if c.App == nil {
		return errors.New("application config is nil")
	}
	if c.BriefPath == "" {
		return errors.New("brief path is required")
	}
	if _, err := os.Stat(c.BriefPath); err != nil {
		return fmt.Errorf("stat brief: %w", err)
	}
	switch c.Mode {
	case ModeRun:
		if c.ResultsDir == "" {
			return errors.New("results directory is required")
		}
		if _, err := os.Stat(filepath.Join(c.ResultsDir, "catalog.json")); err != nil {
			return fmt.Errorf("stat results catalog: %w", err)
		}
	case ModeAnalyze:
		if c.MediaDir == "" {
			return errors.New("media directory is required")
		}
		if info, err := os.Stat(c.MediaDir); err != nil {
			return fmt.Errorf("stat media dir: %w", err)
		} else if !info.IsDir() {
			return fmt.Errorf("media path %s is not a directory", c.MediaDir)
		}
		if c.App.Tools.WhisperModel == "" {
			return errors.New("whisper model path is required")
		}
		if c.App.OpenRouter.APIKey == "" {
			return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
		}
		if err := openrouter.ValidateBaseURL(c.App.OpenRouter.BaseURL, c.App.OpenRouter.AllowedHosts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

func (c Config) source() string {
	if c.Mode == ModeAnalyze {
		return c.MediaDir
	}
	return c.ResultsDir
}

func (c Config) outRoot() string {
	if c.OutDir != "" {
		return c.OutDir
	}
	return c.App.Paths.OutDir
}

// Outcome describes a finished run.
type Outcome struct {
	RunID        string
	Dir          string
	DocumentPath string
	Project      types.Project
}

// Run executes one full pass: adapters, analysis, synthesis, and the output
// bundle. The run is recorded in the state DB whether it succeeds or not.
func Run(ctx context.Context, cfg Config) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("config: %w", err)
	}
	log := logging.NewComponentLogger(cfg.Logger, "pipeline")

	brief, err := editplan.LoadBrief(cfg.BriefPath)
	if err != nil {
		return Outcome{}, err
	}

	outRoot := cfg.outRoot()
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create output root: %w", err)
	}
	lock := flock.New(filepath.Join(outRoot, ".roughcut.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return Outcome{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Outcome{}, ErrOutputLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	st, err := store.Open(cfg.App.Paths.StateDB)
	if err != nil {
		return Outcome{}, err
	}
	defer st.Close()

	runID := uuid.NewString()
	log = log.With(slog.String(logging.FieldRunID, runID))
	if err := st.BeginRun(ctx, store.Run{
		ID:         runID,
		Mode:       string(cfg.Mode),
		Source:     cfg.source(),
		BriefTitle: brief.Title,
	}); err != nil {
		return Outcome{}, err
	}

	out, runErr := execute(ctx, cfg, brief, runID, st, log)
	outcome := store.RunOutcome{
		Clips:        out.Project.Overview.TotalClips,
		AnalysisRate: out.Project.Overview.AnalysisRate,
		Plans:        len(out.Project.EditPlans),
		DocumentPath: out.DocumentPath,
		Err:          runErr,
	}
	if err := st.FinishRun(context.WithoutCancel(ctx), runID, outcome); err != nil {
		log.Warn("failed to record run outcome", logging.Error(err))
	}
	if runErr != nil {
		return Outcome{}, runErr
	}
	return out, nil
}

func execute(ctx context.Context, cfg Config, brief types.Brief, runID string, st *store.Store, log *slog.Logger) (Outcome, error) {
	deps, err := buildDeps(cfg, log)
	if err != nil {
		return Outcome{}, err
	}
	deps.Payloads = store.RunSink{Store: st, RunID: runID}
	deps.Logger = cfg.Logger

	a := cfg.App.Analysis
	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		Brief:         brief,
		Workers:       a.Workers,
		MaxInFlight:   a.MaxInFlight,
		ClipTimeout:   cfg.App.ClipTimeout(),
		WindowSeconds: a.SegmentWindowSeconds,
		OverlapSecs:   a.SegmentOverlapSeconds,
		FramesPerClip: a.FramesPerClip,
		Plan:          PlanOptions(cfg.App.Plan),
	})
	if err != nil {
		return Outcome{}, err
	}

	now := time.Now().UTC()
	res.Project.RunID = runID
	res.Project.GeneratedAt = now

	dir := buildRunOutDir(cfg.outRoot(), brief.Title, now)
	docPath, err := writeBundle(dir, res)
	if err != nil {
		return Outcome{}, err
	}
	log.Info("project written",
		slog.String("path", docPath),
		slog.Int("clips", res.Project.Overview.TotalClips),
		slog.Int("plans", len(res.Project.EditPlans)),
	)
	return Outcome{RunID: runID, Dir: dir, DocumentPath: docPath, Project: res.Project}, nil
}

func buildDeps(cfg Config, log *slog.Logger) (usecase.Deps, error) {
	app := cfg.App
	switch cfg.Mode {
	case ModeRun:
		rd := resultsdir.New(cfg.ResultsDir)
		log.Info("using recorded results", slog.String("root", rd.Root()))
		return usecase.Deps{
			Catalog:     rd,
			Transcriber: rd,
			Diarizer:    rd,
			Frames:      rd,
			Windows:     rd,
			Timestamps:  rd,
		}, nil
	case ModeAnalyze:
		tools := ffmpeg.New(app.Tools.FFmpeg, app.Tools.FFprobe)
		catalog := ffmpeg.NewCatalog(cfg.MediaDir, tools)
		asr := whispercpp.New(app.Tools.WhisperBin, app.Tools.WhisperModel, app.Paths.CacheDir, tools)
		vision := openrouter.New(app.OpenRouter.APIKey, app.OpenRouter.Model, app.OpenRouter.BaseURL, app.Paths.CacheDir, tools)
		var diarizer ports.Diarizer = whispercpp.PresenceDiarizer{}
		if cfg.DiarizationDir != "" {
			diarizer = resultsdir.New(cfg.DiarizationDir)
			log.Info("using recorded diarization", slog.String("root", cfg.DiarizationDir))
		}
		log.Info("using live collaborators",
			slog.String("media", cfg.MediaDir),
			slog.String("vision_model", vision.Model()),
		)
		return usecase.Deps{
			Catalog:     catalog,
			Transcriber: asr,
			Diarizer:    diarizer,
			Frames:      vision,
		}, nil
	}
	return usecase.Deps{}, fmt.Errorf("unknown mode %q", cfg.Mode)
}

// PlanOptions converts the [plan] config section into synthesizer options.
func PlanOptions(p config.Plan) editplan.Options {
	opts := editplan.DefaultOptions()
	opts.MainMaxSeconds = p.MainClipMaxSeconds
	opts.MainMinSeconds = p.MainClipMinSeconds
	opts.BrollMinSeconds = p.BrollClipMinSeconds
	opts.BrollPerMain = p.BrollPerMain
	if len(p.Variants) > 0 {
		opts.Variants = make([]editplan.Variant, 0, len(p.Variants))
		for _, v := range p.Variants {
			opts.Variants = append(opts.Variants, editplan.Variant{Name: v.Name, Scale: v.Scale})
		}
	}
	return opts
}

// writeBundle writes project.json plus one JSON and one ASS file per plan.
func writeBundle(dir string, res usecase.Result) (string, error) {
	plansDir := filepath.Join(dir, "plans")
	if err := os.MkdirAll(plansDir, 0o755); err != nil {
		return "", err
	}
	docPath := filepath.Join(dir, "project.json")
	if err := writeJSON(docPath, res.Project); err != nil {
		return "", fmt.Errorf("write project: %w", err)
	}
	for _, p := range res.Project.EditPlans {
		if err := writeJSON(filepath.Join(plansDir, p.Filename), p); err != nil {
			return "", fmt.Errorf("write plan %s: %w", p.Filename, err)
		}
		assPath := filepath.Join(plansDir, trimExt(p.Filename)+".ass")
		if err := os.WriteFile(assPath, []byte(res.Captions[p.Filename]), 0o644); err != nil {
			return "", fmt.Errorf("write captions %s: %w", assPath, err)
		}
	}
	return docPath, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func buildRunOutDir(outRoot, title string, now time.Time) string {
	name := textutil.Slug(title)
	if name == "" {
		name = "project"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", title, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.Catalog         = (*resultsdir.Adapter)(nil)
	_ ports.Transcriber     = (*resultsdir.Adapter)(nil)
	_ ports.Diarizer        = (*resultsdir.Adapter)(nil)
	_ ports.FrameClassifier = (*resultsdir.Adapter)(nil)
	_ ports.WindowLister    = (*resultsdir.Adapter)(nil)
	_ ports.TimestampLister = (*resultsdir.Adapter)(nil)
	_ ports.Catalog         = (*ffmpeg.Catalog)(nil)
	_ ports.AudioExtractor  = (*ffmpeg.Adapter)(nil)
	_ ports.FrameExtractor  = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber     = (*whispercpp.Adapter)(nil)
	_ ports.Diarizer        = whispercpp.PresenceDiarizer{}
	_ ports.FrameClassifier = (*openrouter.Adapter)(nil)
	_ ports.PayloadSink     = store.RunSink{}
)
