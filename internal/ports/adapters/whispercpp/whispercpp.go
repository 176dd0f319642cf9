package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/roughcut/internal/ports"
	"github.com/forPelevin/roughcut/internal/textutil"
	"github.com/forPelevin/roughcut/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	cacheDir string
	audio    ports.AudioExtractor
}

func New(binPath, modelPath, cacheDir string, audio ports.AudioExtractor) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath, cacheDir: cacheDir, audio: audio}
}

// Transcribe cuts the window out of the clip and runs whisper.cpp on it.
// Results are cached per clip and window so a rerun skips finished work.
func (a *Adapter) Transcribe(ctx context.Context, clip types.Clip, w types.Window) (types.TranscriptionResult, error) {
	dir := filepath.Join(a.cacheDir, "whisper", textutil.Slug(clip.Filename))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.TranscriptionResult{}, err
	}
	outPrefix := filepath.Join(dir, textutil.Slug(w.ID))

	jb, err := os.ReadFile(outPrefix + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		jb, err = a.run(ctx, clip, w, outPrefix)
	}
	if err != nil {
		return types.TranscriptionResult{}, err
	}
	tr, err := parseOutput(jb)
	if err != nil {
		return types.TranscriptionResult{}, fmt.Errorf("whisper.cpp output for %s: %w", w.ID, err)
	}
	tr.Duration = w.Duration
	return tr, nil
}

func (a *Adapter) run(ctx context.Context, clip types.Clip, w types.Window, outPrefix string) ([]byte, error) {
	wav := outPrefix + ".wav"
	if err := a.audio.ExtractAudioWindow(ctx, clip.Path, w.StartTime, w.Duration, wav); err != nil {
		return nil, err
	}
	defer os.Remove(wav)

	args := []string{
		"-m", a.model,
		"-f", wav,
		"-ojf",
		"-of", outPrefix,
		"-np",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}
	return os.ReadFile(outPrefix + ".json")
}

type output struct {
	Params struct {
		Language string `json:"language"`
	} `json:"params"`
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text   string `json:"text"`
		Tokens []struct {
			Text string  `json:"text"`
			P    float64 `json:"p"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// parseOutput maps whisper.cpp's JSON onto a transcription result. whisper.cpp
// reports token probabilities rather than segment log-probabilities, so
// avg_logprob is the mean log of the text tokens' probabilities. It has no
// no-speech estimate; empty text counts as silence.
func parseOutput(b []byte) (types.TranscriptionResult, error) {
	var o output
	if err := json.Unmarshal(b, &o); err != nil {
		return types.TranscriptionResult{}, err
	}
	tr := types.TranscriptionResult{
		Task:     "transcribe",
		Language: o.Result.Language,
		Segments: make([]types.SubSegment, 0, len(o.Transcription)),
		Raw:      append(json.RawMessage(nil), b...),
	}
	if tr.Language == "" && o.Params.Language != "auto" {
		tr.Language = o.Params.Language
	}

	var texts []string
	for _, s := range o.Transcription {
		text := strings.TrimSpace(s.Text)
		if isNonSpeech(text) {
			text = ""
		}
		sub := types.SubSegment{
			Start:      float64(s.Offsets.From) / 1000,
			End:        float64(s.Offsets.To) / 1000,
			Text:       text,
			AvgLogprob: avgLogprob(s.Tokens),
		}
		if text == "" {
			sub.NoSpeechProb = 1
		} else {
			texts = append(texts, text)
		}
		tr.Segments = append(tr.Segments, sub)
	}
	tr.Text = strings.Join(texts, " ")
	return tr, nil
}

func avgLogprob(tokens []struct {
	Text string  `json:"text"`
	P    float64 `json:"p"`
}) float64 {
	var sum float64
	n := 0
	for _, t := range tokens {
		// special tokens such as [_BEG_] and [_TT_150]
		if strings.HasPrefix(t.Text, "[_") || t.P <= 0 {
			continue
		}
		sum += math.Log(t.P)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// whisper.cpp marks silence and noise with bracketed annotations.
func isNonSpeech(text string) bool {
	t := strings.ToLower(strings.Trim(text, " .()"))
	switch t {
	case "", "[blank_audio]", "[silence]", "[music]", "[noise]", "music", "silence", "inaudible":
		return true
	}
	return strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")
}
