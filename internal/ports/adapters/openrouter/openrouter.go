package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/roughcut/internal/ports"
	"github.com/forPelevin/roughcut/internal/textutil"
	"github.com/forPelevin/roughcut/internal/types"
)

// Adapter classifies single frames with a vision model behind OpenRouter's
// chat completions API.
type Adapter struct {
	key      string
	model    string
	baseURL  string
	client   *http.Client
	frames   ports.FrameExtractor
	cacheDir string
}

const (
	requestTimeout = 90 * time.Second
	defaultModel   = "google/gemini-2.5-flash"
)

func New(apiKey, model, baseURL, cacheDir string, frames ports.FrameExtractor) *Adapter {
	if model == "" {
		model = defaultModel
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		key:      apiKey,
		model:    model,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 5 * time.Minute},
		frames:   frames,
		cacheDir: cacheDir,
	}
}

func (a *Adapter) Model() string { return a.model }

func (a *Adapter) Classify(ctx context.Context, clip types.Clip, ts float64) (types.FrameAnalysis, error) {
	dir := filepath.Join(a.cacheDir, "frames", textutil.Slug(clip.Filename))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.FrameAnalysis{}, err
	}
	jpg := filepath.Join(dir, fmt.Sprintf("%010.3f.jpg", ts))
	if _, err := os.Stat(jpg); err != nil {
		if err := a.frames.ExtractFrame(ctx, clip.Path, ts, jpg); err != nil {
			return types.FrameAnalysis{}, err
		}
	}
	img, err := os.ReadFile(jpg)
	if err != nil {
		return types.FrameAnalysis{}, fmt.Errorf("read frame: %w", err)
	}

	content, err := a.complete(ctx, img)
	if err != nil {
		return types.FrameAnalysis{}, err
	}
	fa, err := parseFrameAnalysis(content)
	if err != nil {
		return types.FrameAnalysis{}, err
	}
	fa.Timestamp = ts
	return fa, nil
}

func (a *Adapter) complete(ctx context.Context, jpeg []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	// strict schema: one classification per frame.
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": classifyPrompt},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "frame_classification",
				"strict": true,
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"shot_scale":    map[string]any{"type": "string"},
						"shot_movement": map[string]any{"type": "string"},
						"subject_focus": map[string]any{"type": "string", "enum": []string{"person", "object", "environment", "text"}},
						"subject_count": map[string]any{"type": "integer"},
						"confidence":    map[string]any{"type": "number"},
						"description":   map[string]any{"type": "string"},
					},
					"required":             []string{"shot_scale", "shot_movement", "subject_focus", "subject_count", "confidence", "description"},
					"additionalProperties": false,
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := chatURL(a.baseURL)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}
	return messageContentToString(raw.Choices[0].Message.Content)
}

const classifyPrompt = "Classify this single video frame for an editor. " +
	"Return strictly valid JSON (no markdown, no code fences) matching the provided schema. " +
	"shot_scale uses standard names (Extreme Wide Shot, Wide Shot, Full Shot, Medium Wide Shot, Medium Shot, " +
	"Medium Close-Up, Close-Up, Extreme Close-Up, Over-the-Shoulder, Point of View, Insert). " +
	"shot_movement is the apparent camera movement (Static, Pan, Tilt, Tracking, Handheld, Zoom, Aerial, Gimbal). " +
	"subject_focus is what the frame is about. confidence is between 0 and 1. " +
	"description is one short sentence."

func parseFrameAnalysis(content string) (types.FrameAnalysis, error) {
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.FrameAnalysis{}, err
	}
	var fa types.FrameAnalysis
	if err := json.Unmarshal([]byte(clean), &fa); err != nil {
		return types.FrameAnalysis{}, fmt.Errorf("openrouter: parse classification: %w", err)
	}
	fa.ShotScale = strings.TrimSpace(fa.ShotScale)
	fa.ShotMovement = strings.TrimSpace(fa.ShotMovement)
	fa.SubjectFocus = strings.TrimSpace(fa.SubjectFocus)
	fa.Description = strings.TrimSpace(fa.Description)
	if fa.ShotScale == "" || fa.SubjectFocus == "" {
		return types.FrameAnalysis{}, fmt.Errorf("openrouter: incomplete classification: %q", truncate(clean, 200))
	}
	switch {
	case fa.Confidence < 0:
		fa.Confidence = 0
	case fa.Confidence > 1:
		// some models answer in percent
		if fa.Confidence <= 100 {
			fa.Confidence /= 100
		} else {
			fa.Confidence = 1
		}
	}
	if fa.SubjectCount < 0 {
		fa.SubjectCount = 0
	}
	return fa, nil
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
