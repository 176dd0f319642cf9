// Package resultsdir serves previously recorded inference results from a
// directory:
//
//	catalog.json         array of clip records, ended by a "_summary" entry
//	segments/<clip>.json array of {id, start_time, duration, transcription, diarization}
//	scenes/<clip>.json   array of frame analyses, or {"error": "<code>"}
package resultsdir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/forPelevin/roughcut/internal/domain/scenes"
	"github.com/forPelevin/roughcut/internal/types"
)

type Adapter struct {
	root string

	mu       sync.Mutex
	segments map[string][]types.Segment
	frames   map[string]sceneFile
}

type sceneFile struct {
	frames []types.FrameAnalysis
	err    error
}

func New(root string) *Adapter {
	return &Adapter{
		root:     root,
		segments: map[string][]types.Segment{},
		frames:   map[string]sceneFile{},
	}
}

func (a *Adapter) Root() string { return a.root }

func (a *Adapter) Clips(ctx context.Context) ([]types.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(a.root, "catalog.json"))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var raw []types.Clip
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	out := make([]types.Clip, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		if types.IsTerminalMarker(c.Filename) {
			break
		}
		if c.Filename == "" {
			return nil, errors.New("parse catalog: entry without filename")
		}
		if seen[c.Filename] {
			return nil, fmt.Errorf("parse catalog: duplicate clip %q", c.Filename)
		}
		seen[c.Filename] = true
		out = append(out, c)
	}
	return out, nil
}

func (a *Adapter) Windows(ctx context.Context, clip types.Clip) ([]types.Window, error) {
	segs, err := a.loadSegments(ctx, clip.Filename)
	if err != nil {
		return nil, err
	}
	out := make([]types.Window, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.Window)
	}
	return out, nil
}

func (a *Adapter) Transcribe(ctx context.Context, clip types.Clip, w types.Window) (types.TranscriptionResult, error) {
	s, err := a.segment(ctx, clip.Filename, w.ID)
	if err != nil {
		return types.TranscriptionResult{}, err
	}
	return s.Transcription, nil
}

func (a *Adapter) Diarize(ctx context.Context, clip types.Clip, seg types.Segment) (types.DiarizationResult, error) {
	s, err := a.segment(ctx, clip.Filename, seg.ID)
	if err != nil {
		return types.DiarizationResult{}, err
	}
	d := s.Diarization
	if d.StartTime == 0 {
		d.StartTime = s.StartTime
	}
	return d, nil
}

func (a *Adapter) Timestamps(ctx context.Context, clip types.Clip) ([]float64, error) {
	sf, err := a.loadScenes(ctx, clip.Filename)
	if err != nil {
		return nil, err
	}
	if sf.err != nil {
		return nil, sf.err
	}
	out := make([]float64, 0, len(sf.frames))
	for _, f := range sf.frames {
		out = append(out, f.Timestamp)
	}
	if len(out) == 0 {
		return nil, scenes.ErrMissingTimestamps
	}
	return out, nil
}

func (a *Adapter) Classify(ctx context.Context, clip types.Clip, ts float64) (types.FrameAnalysis, error) {
	sf, err := a.loadScenes(ctx, clip.Filename)
	if err != nil {
		return types.FrameAnalysis{}, err
	}
	if sf.err != nil {
		return types.FrameAnalysis{}, sf.err
	}
	for _, f := range sf.frames {
		if math.Abs(f.Timestamp-ts) < 1e-6 {
			return f, nil
		}
	}
	return types.FrameAnalysis{}, fmt.Errorf("no recorded frame for %s at %.3fs", clip.Filename, ts)
}

func (a *Adapter) segment(ctx context.Context, clip, id string) (types.Segment, error) {
	segs, err := a.loadSegments(ctx, clip)
	if err != nil {
		return types.Segment{}, err
	}
	for _, s := range segs {
		if s.ID == id {
			return s, nil
		}
	}
	return types.Segment{}, fmt.Errorf("no recorded segment %q for %s", id, clip)
}

func (a *Adapter) loadSegments(ctx context.Context, clip string) ([]types.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if segs, ok := a.segments[clip]; ok {
		return segs, nil
	}

	b, err := os.ReadFile(filepath.Join(a.root, "segments", clip+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		a.segments[clip] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read segments for %s: %w", clip, err)
	}
	var segs []types.Segment
	if err := json.Unmarshal(b, &segs); err != nil {
		return nil, fmt.Errorf("parse segments for %s: %w", clip, err)
	}
	for i := range segs {
		if segs[i].ID == "" {
			segs[i].ID = fmt.Sprintf("%s#%d", clip, i)
		}
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].StartTime < segs[j].StartTime })
	a.segments[clip] = segs
	return segs, nil
}

func (a *Adapter) loadScenes(ctx context.Context, clip string) (sceneFile, error) {
	if err := ctx.Err(); err != nil {
		return sceneFile{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if sf, ok := a.frames[clip]; ok {
		return sf, nil
	}

	b, err := os.ReadFile(filepath.Join(a.root, "scenes", clip+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		sf := sceneFile{err: scenes.ErrMissingTimestamps}
		a.frames[clip] = sf
		return sf, nil
	}
	if err != nil {
		return sceneFile{}, fmt.Errorf("read scenes for %s: %w", clip, err)
	}

	var sf sceneFile
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var rec struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(b, &rec); err != nil {
			return sceneFile{}, fmt.Errorf("parse scenes for %s: %w", clip, err)
		}
		sf.err = recordedError(rec.Error)
	} else if err := json.Unmarshal(b, &sf.frames); err != nil {
		return sceneFile{}, fmt.Errorf("parse scenes for %s: %w", clip, err)
	}
	a.frames[clip] = sf
	return sf, nil
}

func recordedError(code string) error {
	switch types.ErrorCode(code) {
	case types.CodeMissingTimestamps, "":
		return scenes.ErrMissingTimestamps
	default:
		return &types.StageError{Code: types.ErrorCode(code)}
	}
}
