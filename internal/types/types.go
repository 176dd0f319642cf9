package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the structured failure marker recorded on a per-clip aggregate.
// Stage failures never abort a batch; they are carried as values.
type ErrorCode string

const (
	CodeMissingTimestamps  ErrorCode = "MissingTimestamps"
	CodeEmptyTranscript    ErrorCode = "EmptyTranscript"
	CodeNoSpeakerDetected  ErrorCode = "NoSpeakerDetected"
	CodeUnrecognizedCamera ErrorCode = "UnrecognizedCamera"
	CodeTimeout            ErrorCode = "Timeout"
	CodeInferenceFailed    ErrorCode = "InferenceFailed"
)

// StageError carries a recorded failure code out of a collaborator.
type StageError struct {
	Code ErrorCode
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// CodeOf returns the code of the first StageError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// SummaryMarker names the sentinel catalog/transcript entry that terminates a
// listing. It is never aggregated as a clip.
const SummaryMarker = "_summary"

func IsTerminalMarker(filename string) bool { return filename == SummaryMarker }

type Clip struct {
	Filename        string     `json:"filename"`
	Path            string     `json:"path"`
	Source          string     `json:"source"`
	DurationSeconds float64    `json:"duration_seconds"`
	SizeBytes       int64      `json:"size_bytes"`
	Video           *VideoInfo `json:"video,omitempty"`
	Audio           *AudioInfo `json:"audio,omitempty"`
}

type VideoInfo struct {
	Codec  string  `json:"codec"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	PixFmt string  `json:"pix_fmt"`
}

type AudioInfo struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Window is a time-bounded slice of a clip's audio.
type Window struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

func (w Window) End() float64 { return w.StartTime + w.Duration }

type Segment struct {
	Window
	Transcription TranscriptionResult `json:"transcription"`
	Diarization   DiarizationResult   `json:"diarization"`
}

type TranscriptionResult struct {
	Task     string       `json:"task,omitempty"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Text     string       `json:"text"`
	Segments []SubSegment `json:"segments"`

	// Raw is the payload as received, kept for audit only.
	Raw json.RawMessage `json:"-"`
}

func (r *TranscriptionResult) UnmarshalJSON(b []byte) error {
	type plain TranscriptionResult
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = TranscriptionResult(p)
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type SubSegment struct {
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	CompressionRatio float64 `json:"compression_ratio"`
}

type DiarizationResult struct {
	SegmentPath      string   `json:"segment_path,omitempty"`
	StartTime        float64  `json:"start_time"`
	Transcription    string   `json:"transcription,omitempty"`
	Text             string   `json:"text,omitempty"`
	SpeakersDetected []string `json:"speakers_detected"`
}

type FrameAnalysis struct {
	ShotScale    string  `json:"shot_scale"`
	ShotMovement string  `json:"shot_movement"`
	SubjectFocus string  `json:"subject_focus"`
	SubjectCount int     `json:"subject_count"`
	Confidence   float64 `json:"confidence"`
	Description  string  `json:"description"`
	Timestamp    float64 `json:"timestamp"`
}

// Attachment is an opaque inference payload stored for audit, keyed by the
// segment it came from.
type Attachment struct {
	SegmentID string
	Payload   json.RawMessage
}

type TimedText struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ClipTranscript struct {
	Filename   string      `json:"filename"`
	Text       string      `json:"text"`
	WordCount  int         `json:"word_count"`
	Language   string      `json:"language"`
	Duration   float64     `json:"duration"`
	Segments   int         `json:"segments"`
	AvgLogprob float64     `json:"avg_logprob"`
	Lines      []TimedText `json:"lines,omitempty"`
	Error      ErrorCode   `json:"error,omitempty"`
	// Partial marks text merged from only some windows; Error names why the
	// rest were skipped.
	Partial bool `json:"partial,omitempty"`
}

// Usable reports whether the transcript carries words a plan can cut on.
// Partial transcripts qualify.
func (t ClipTranscript) Usable() bool { return t.WordCount > 0 && (t.Error == "" || t.Partial) }

type SpeakerStat struct {
	Appearances int       `json:"appearances"`
	Segments    []float64 `json:"segments"`
	TotalTime   float64   `json:"total_time"`
	Percentage  float64   `json:"percentage"`
}

type DiarizationSummary struct {
	TotalSegments   int                    `json:"total_segments"`
	SpeakersFound   int                    `json:"speakers_found"`
	SpeakerStats    map[string]SpeakerStat `json:"speaker_stats"`
	DominantSpeaker *string                `json:"dominant_speaker"`
	Error           ErrorCode              `json:"error,omitempty"`
	Partial         bool                   `json:"partial,omitempty"`
}

// Usable reports whether a dominant speaker was found, possibly from only
// some windows.
func (d DiarizationSummary) Usable() bool {
	return d.DominantSpeaker != nil && (d.Error == "" || d.Partial)
}

func (d DiarizationSummary) Dominant() string {
	if d.DominantSpeaker == nil {
		return ""
	}
	return *d.DominantSpeaker
}

type SceneConsistency struct {
	ShotScale bool `json:"shot_scale"`
	Movement  bool `json:"movement"`
	Subject   bool `json:"subject"`
}

type ClipSceneSummary struct {
	OverallClassification *FrameAnalysis   `json:"overall_classification,omitempty"`
	Consistency           SceneConsistency `json:"consistency"`
	IsConsistent          bool             `json:"is_consistent"`
	Timestamps            []float64        `json:"timestamps"`
	Error                 ErrorCode        `json:"error,omitempty"`
}

type GradingPreset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CameraGroup struct {
	Source string        `json:"source"`
	Clips  []string      `json:"clips"`
	Preset GradingPreset `json:"preset"`
	// Code is informational; the clips are still graded and cut.
	Code ErrorCode `json:"code,omitempty"`
}

type ColorGrading struct {
	Groups        []CameraGroup `json:"groups"`
	ProjectPreset GradingPreset `json:"project_preset"`
	Families      int           `json:"families"`
}

// ClipAggregate bundles every per-clip output, success or explicit failure.
type ClipAggregate struct {
	Clip        Clip
	Transcript  ClipTranscript
	Diarization DiarizationSummary
	Scenes      ClipSceneSummary
	Attachments []Attachment
}

type Role string

const (
	RoleMain  Role = "main"
	RoleBroll Role = "broll"
)

type Track string

const (
	TrackV1 Track = "V1"
	TrackV2 Track = "V2"
)

type ClipReference struct {
	Filename     string  `json:"filename"`
	Role         Role    `json:"role"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Track        Track   `json:"track"`
	// TimelineSeconds is the reference's offset from the start of its section.
	TimelineSeconds float64 `json:"timeline_seconds"`
	Note            string  `json:"note,omitempty"`
}

func (r ClipReference) Duration() float64 { return r.EndSeconds - r.StartSeconds }

type Section struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Clips       []ClipReference `json:"clips"`
	Note        string          `json:"note,omitempty"`
}

type EditPlan struct {
	Title                    string    `json:"title"`
	EstimatedDurationSeconds float64   `json:"estimated_duration_seconds"`
	Sections                 []Section `json:"sections"`
	Filename                 string    `json:"filename"`
}

type Brief struct {
	Title         string         `json:"title" yaml:"title"`
	TargetSeconds float64        `json:"target_seconds" yaml:"target_seconds"`
	Sections      []BriefSection `json:"sections" yaml:"sections"`
}

type BriefSection struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Intent      string  `json:"intent,omitempty" yaml:"intent,omitempty"`
	Narrative   *bool   `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

type Overview struct {
	TotalClips        int     `json:"total_clips"`
	TotalDuration     float64 `json:"total_duration"`
	TranscribedClips  int     `json:"transcribed_clips"`
	AnalyzedClips     int     `json:"analyzed_clips"`
	TranscriptionRate float64 `json:"transcription_rate"`
	AnalysisRate      float64 `json:"analysis_rate"`
}

type DiarizationAnalysis struct {
	ClipResults map[string]DiarizationSummary `json:"clip_results"`
}

type SceneAnalysis struct {
	Clips           map[string]ClipSceneSummary `json:"clips"`
	AnalyzedClips   int                         `json:"analyzed_clips"`
	ConsistentClips int                         `json:"consistent_clips"`
	ConsistencyRate float64                     `json:"consistency_rate"`
}

type Analysis struct {
	Diarization  DiarizationAnalysis `json:"diarization"`
	Scenes       SceneAnalysis       `json:"scenes"`
	ColorGrading ColorGrading        `json:"color_grading"`
}

// Project is the terminal document handed to presentation layers.
type Project struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Overview    Overview         `json:"overview"`
	Clips       []Clip           `json:"clips"`
	Transcripts []ClipTranscript `json:"transcripts"`
	Analysis    Analysis         `json:"analysis"`
	EditPlans   []EditPlan       `json:"edit_plans"`
}
