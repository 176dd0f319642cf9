package ports

import (
	"context"

	"github.com/forPelevin/roughcut/internal/types"
)

// Catalog lists the clips of a project. Entries after a terminal marker are
// not part of the catalog.
type Catalog interface {
	Clips(ctx context.Context) ([]types.Clip, error)
}

// Transcriber returns the speech-to-text result for one audio window.
type Transcriber interface {
	Transcribe(ctx context.Context, clip types.Clip, w types.Window) (types.TranscriptionResult, error)
}

// Diarizer detects speakers in one window. The segment carries the
// window's transcription for diarizers that work from it.
type Diarizer interface {
	Diarize(ctx context.Context, clip types.Clip, seg types.Segment) (types.DiarizationResult, error)
}

// FrameClassifier classifies the frame at ts seconds into the clip.
type FrameClassifier interface {
	Classify(ctx context.Context, clip types.Clip, ts float64) (types.FrameAnalysis, error)
}

// WindowLister is implemented by sources that already know a clip's audio
// windows. Without one the windows are planned from the clip duration.
type WindowLister interface {
	Windows(ctx context.Context, clip types.Clip) ([]types.Window, error)
}

// TimestampLister is implemented by sources that already know which frames
// were sampled. Without one timestamps are sampled from the clip duration.
type TimestampLister interface {
	Timestamps(ctx context.Context, clip types.Clip) ([]float64, error)
}

// PayloadSink receives opaque inference payloads for audit.
type PayloadSink interface {
	SavePayloads(ctx context.Context, clip string, atts []types.Attachment) error
}

// AudioExtractor and FrameExtractor cut media for the live collaborators.
type AudioExtractor interface {
	ExtractAudioWindow(ctx context.Context, in string, start, duration float64, outWav string) error
}

type FrameExtractor interface {
	ExtractFrame(ctx context.Context, in string, ts float64, outJPG string) error
}
