package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/forPelevin/roughcut/internal/domain/camera"
	"github.com/forPelevin/roughcut/internal/domain/diarization"
	"github.com/forPelevin/roughcut/internal/domain/editplan"
	"github.com/forPelevin/roughcut/internal/domain/overview"
	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/domain/segments"
	"github.com/forPelevin/roughcut/internal/domain/subtitles"
	"github.com/forPelevin/roughcut/internal/domain/transcript"
	"github.com/forPelevin/roughcut/internal/logging"
	"github.com/forPelevin/roughcut/internal/ports"
	"github.com/forPelevin/roughcut/internal/types"
)

// Deps are the collaborators. Windows, Timestamps and Payloads are optional.
type Deps struct {
	Catalog     ports.Catalog
	Transcriber ports.Transcriber
	Diarizer    ports.Diarizer
	Frames      ports.FrameClassifier
	Windows     ports.WindowLister
	Timestamps  ports.TimestampLister
	Payloads    ports.PayloadSink
	Logger      *slog.Logger
}

type Usecase struct {
	d   Deps
	log *slog.Logger
}

func New(d Deps) Usecase {
	return Usecase{d: d, log: logging.NewComponentLogger(d.Logger, "usecase")}
}

type Input struct {
	Brief         types.Brief
	Workers       int
	MaxInFlight   int
	ClipTimeout   time.Duration
	WindowSeconds float64
	OverlapSecs   float64
	FramesPerClip int
	Plan          editplan.Options
}

type Result struct {
	Project    types.Project
	Aggregates []types.ClipAggregate
	// Captions maps a plan filename to its ASS caption track.
	Captions map[string]string
}

// Run analyzes every clip on a bounded worker pool, waits for all of them,
// then synthesizes the edit plans. A clip that fails or times out is kept
// with error codes on its aggregate; only cancellation of ctx aborts the run.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	if err := editplan.ValidateBrief(in.Brief); err != nil {
		return Result{}, err
	}
	clips, err := u.d.Catalog.Clips(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list clips: %w", err)
	}
	u.log.Info("catalog loaded", slog.Int("clips", len(clips)))

	workers := max(in.Workers, 1)
	inflight := int64(max(in.MaxInFlight, 1))
	sem := semaphore.NewWeighted(inflight)

	aggs := make([]types.ClipAggregate, len(clips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range clips {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			aggs[i] = u.analyzeClip(gctx, sem, c, in)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	grading := camera.Group(clips)
	plans := editplan.Synthesize(in.Brief, aggs, in.Plan)
	project := overview.Assemble(aggs, grading, plans)

	trs := make(map[string]types.ClipTranscript, len(aggs))
	for _, a := range aggs {
		trs[a.Clip.Filename] = a.Transcript
	}
	captions := make(map[string]string, len(plans))
	for _, p := range plans {
		captions[p.Filename] = subtitles.RenderPlanASS(p, trs)
	}

	u.log.Info("edit plans synthesized",
		slog.Int("plans", len(plans)),
		slog.Float64("analysis_rate", project.Overview.AnalysisRate),
		slog.Float64("transcription_rate", project.Overview.TranscriptionRate),
	)
	return Result{Project: project, Aggregates: aggs, Captions: captions}, nil
}

// analyzeClip runs every stage for one clip. Segments are processed in time
// order; inference calls take a slot from sem so the collaborators see at
// most MaxInFlight concurrent requests across all workers.
//
// ClipTimeout bounds the time the clip spends holding slots, not the time it
// waits for one, so a long admission queue never times a clip out.
func (u Usecase) analyzeClip(ctx context.Context, sem *semaphore.Weighted, clip types.Clip, in Input) types.ClipAggregate {
	log := u.log.With(slog.String(logging.FieldClip, clip.Filename))
	start := time.Now()
	gate := &slotGate{sem: sem, budget: in.ClipTimeout}

	agg := types.ClipAggregate{Clip: clip}
	segs, speechCode, speakerCode := u.collectSegments(ctx, gate, clip, in, log)

	// a skipped window keeps its code even when other windows produced text
	agg.Transcript = transcript.Merge(clip.Filename, segs)
	if speechCode != "" {
		agg.Transcript.Partial = agg.Transcript.WordCount > 0
		agg.Transcript.Error = speechCode
	}
	agg.Diarization = diarization.Aggregate(segs)
	if speakerCode != "" {
		agg.Diarization.Partial = agg.Diarization.DominantSpeaker != nil
		agg.Diarization.Error = speakerCode
	}

	agg.Scenes = u.collectScenes(ctx, gate, clip, in, log)

	for _, s := range segs {
		if len(s.Transcription.Raw) > 0 {
			agg.Attachments = append(agg.Attachments, types.Attachment{SegmentID: s.ID, Payload: s.Transcription.Raw})
		}
	}
	if u.d.Payloads != nil && len(agg.Attachments) > 0 {
		// audit storage must not fail the clip
		if err := u.d.Payloads.SavePayloads(context.WithoutCancel(ctx), clip.Filename, agg.Attachments); err != nil {
			log.Warn("store payloads failed", logging.Error(err))
		}
	}

	log.Debug("clip analyzed",
		slog.Int("segments", len(segs)),
		slog.Int("words", agg.Transcript.WordCount),
		slog.String("scene_error", string(agg.Scenes.Error)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return agg
}

func (u Usecase) collectSegments(ctx context.Context, gate *slotGate, clip types.Clip, in Input, log *slog.Logger) ([]types.Segment, types.ErrorCode, types.ErrorCode) {
	windows, err := u.windows(ctx, clip, in)
	if err != nil {
		code := codeFor(err)
		log.Warn("segment listing failed", slog.String(logging.FieldStage, "segments"), slog.String(logging.FieldErrorCode, string(code)), logging.Error(err))
		return nil, code, code
	}

	var speechCode, speakerCode types.ErrorCode
	segs := make([]types.Segment, 0, len(windows))
	for _, w := range windows {
		if err := gate.err(ctx); err != nil {
			speechCode, speakerCode = codeFor(err), codeFor(err)
			break
		}
		seg := types.Segment{Window: w}

		tr, err := call(ctx, gate, func(ctx context.Context) (types.TranscriptionResult, error) {
			return u.d.Transcriber.Transcribe(ctx, clip, w)
		})
		if err != nil {
			speechCode = codeFor(err)
			log.Warn("transcription failed", slog.String(logging.FieldStage, "transcribe"), slog.String("segment", w.ID),
				slog.String(logging.FieldErrorCode, string(speechCode)), logging.Error(err))
			continue
		}
		seg.Transcription = tr

		if u.d.Diarizer != nil {
			d, err := call(ctx, gate, func(ctx context.Context) (types.DiarizationResult, error) {
				return u.d.Diarizer.Diarize(ctx, clip, seg)
			})
			if err != nil {
				speakerCode = codeFor(err)
				log.Warn("diarization failed", slog.String(logging.FieldStage, "diarize"), slog.String("segment", w.ID),
					slog.String(logging.FieldErrorCode, string(speakerCode)), logging.Error(err))
			} else {
				seg.Diarization = d
			}
		}
		segs = append(segs, seg)
	}
	return segs, speechCode, speakerCode
}

func (u Usecase) collectScenes(ctx context.Context, gate *slotGate, clip types.Clip, in Input, log *slog.Logger) types.ClipSceneSummary {
	stamps, err := u.timestamps(ctx, clip, in)
	if err != nil {
		code := codeFor(err)
		if code != types.CodeMissingTimestamps {
			log.Warn("frame sampling failed", slog.String(logging.FieldStage, "scenes"), slog.String(logging.FieldErrorCode, string(code)), logging.Error(err))
		}
		return types.ClipSceneSummary{Timestamps: []float64{}, Error: code}
	}

	var lastCode types.ErrorCode
	frames := make([]types.FrameAnalysis, 0, len(stamps))
	for _, ts := range stamps {
		if err := gate.err(ctx); err != nil {
			lastCode = codeFor(err)
			break
		}
		fa, err := call(ctx, gate, func(ctx context.Context) (types.FrameAnalysis, error) {
			return u.d.Frames.Classify(ctx, clip, ts)
		})
		if err != nil {
			lastCode = codeFor(err)
			log.Warn("frame classification failed", slog.String(logging.FieldStage, "scenes"), slog.Float64("timestamp", ts),
				slog.String(logging.FieldErrorCode, string(lastCode)), logging.Error(err))
			continue
		}
		fa.Timestamp = ts
		frames = append(frames, fa)
	}
	sum := scenes.Summarize(frames)
	if len(frames) == 0 && lastCode != "" {
		sum.Error = lastCode
	}
	return sum
}

func (u Usecase) windows(ctx context.Context, clip types.Clip, in Input) ([]types.Window, error) {
	if u.d.Windows != nil {
		return u.d.Windows.Windows(ctx, clip)
	}
	return segments.ForClip(clip, in.WindowSeconds, in.OverlapSecs)
}

func (u Usecase) timestamps(ctx context.Context, clip types.Clip, in Input) ([]float64, error) {
	if u.d.Timestamps != nil {
		return u.d.Timestamps.Timestamps(ctx, clip)
	}
	return scenes.SampleTimestamps(clip, in.FramesPerClip)
}

// slotGate admits one clip's inference calls through the shared in-flight
// semaphore and charges the time spent holding a slot to the clip's budget.
// A clip's calls run sequentially, so used needs no lock.
type slotGate struct {
	sem    *semaphore.Weighted
	budget time.Duration // zero means unbounded
	used   time.Duration
}

func (g *slotGate) remaining() time.Duration { return g.budget - g.used }

// err reports why no further call may start: run cancellation or an
// exhausted budget.
func (g *slotGate) err(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.budget > 0 && g.remaining() <= 0 {
		return context.DeadlineExceeded
	}
	return nil
}

// call runs one inference request while holding an in-flight slot. Waiting
// for a slot queues the request; it is never dropped. The request runs under
// whatever is left of the clip budget once the slot is granted.
func call[T any](ctx context.Context, g *slotGate, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := g.err(ctx); err != nil {
		return zero, err
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer g.sem.Release(1)

	if g.budget <= 0 {
		return fn(ctx)
	}
	start := time.Now()
	defer func() { g.used += time.Since(start) }()
	callCtx, cancel := context.WithTimeout(ctx, g.remaining())
	defer cancel()
	return fn(callCtx)
}

func codeFor(err error) types.ErrorCode {
	switch {
	case errors.Is(err, scenes.ErrMissingTimestamps):
		return types.CodeMissingTimestamps
	case errors.Is(err, context.DeadlineExceeded):
		return types.CodeTimeout
	}
	if code, ok := types.CodeOf(err); ok {
		return code
	}
	return types.CodeInferenceFailed
}
