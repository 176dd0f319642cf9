package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudioWindow writes [start, start+duration) of the input as 16 kHz
// mono WAV, the format whisper.cpp expects.
func (a *Adapter) ExtractAudioWindow(ctx context.Context, in string, start, duration float64, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-t", fmtSeconds(duration),
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// ExtractFrame writes a single JPEG frame at ts seconds, scaled down so the
// longest side is at most 1024 pixels.
func (a *Adapter) ExtractFrame(ctx context.Context, in string, ts float64, outJPG string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(ts),
		"-i", in,
		"-frames:v", "1",
		"-vf", "scale='min(1024,iw)':-2",
		"-q:v", "3",
		outJPG,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract frame: %w\n%s", err, string(b))
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
