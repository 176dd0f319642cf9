package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

// Probe reads container and stream metadata with ffprobe.
func (a *Adapter) Probe(ctx context.Context, path string) (types.Clip, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return types.Clip{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	c, err := parseProbe(b)
	if err != nil {
		return types.Clip{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	c.Filename = filepath.Base(path)
	c.Path = path
	return c, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string            `json:"codec_type"`
		CodecName    string            `json:"codec_name"`
		Width        int               `json:"width"`
		Height       int               `json:"height"`
		PixFmt       string            `json:"pix_fmt"`
		AvgFrameRate string            `json:"avg_frame_rate"`
		RFrameRate   string            `json:"r_frame_rate"`
		SampleRate   string            `json:"sample_rate"`
		Channels     int               `json:"channels"`
		Disposition  map[string]int    `json:"disposition"`
		Tags         map[string]string `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string            `json:"duration"`
		Size     string            `json:"size"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

func parseProbe(b []byte) (types.Clip, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return types.Clip{}, fmt.Errorf("parse json: %w", err)
	}
	var c types.Clip
	c.DurationSeconds, _ = strconv.ParseFloat(p.Format.Duration, 64)
	c.SizeBytes, _ = strconv.ParseInt(p.Format.Size, 10, 64)
	c.Source = sourceTag(p.Format.Tags)

	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			// cover art is a single attached picture, not footage
			if c.Video != nil || s.Disposition["attached_pic"] == 1 {
				continue
			}
			fps := parseRate(s.AvgFrameRate)
			if fps == 0 {
				fps = parseRate(s.RFrameRate)
			}
			c.Video = &types.VideoInfo{Codec: s.CodecName, Width: s.Width, Height: s.Height, FPS: fps, PixFmt: s.PixFmt}
		case "audio":
			if c.Audio != nil {
				continue
			}
			sr, _ := strconv.Atoi(s.SampleRate)
			c.Audio = &types.AudioInfo{Codec: s.CodecName, SampleRate: sr, Channels: s.Channels}
		}
	}
	if c.Video == nil && c.Audio == nil {
		return types.Clip{}, fmt.Errorf("no audio or video stream")
	}
	return c, nil
}

// sourceTag picks the device model from container tags when one is present.
func sourceTag(tags map[string]string) string {
	for _, k := range []string{"com.apple.quicktime.model", "model", "com.android.model", "make", "encoder"} {
		for tk, v := range tags {
			if strings.EqualFold(tk, k) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return float64(int(n/d*1000+0.5)) / 1000
}

var mediaExt = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".mkv": true, ".mts": true,
	".avi": true, ".wav": true, ".m4a": true, ".mp3": true,
	".arw": true, ".jpg": true, ".jpeg": true, ".png": true,
}

// Catalog probes every media file under a directory. Files ffprobe cannot
// read are skipped and reported through Skipped.
type Catalog struct {
	Dir   string
	Probe func(ctx context.Context, path string) (types.Clip, error)

	Skipped map[string]error
}

func NewCatalog(dir string, a *Adapter) *Catalog {
	return &Catalog{Dir: dir, Probe: a.Probe}
}

func (c *Catalog) Clips(ctx context.Context) ([]types.Clip, error) {
	var paths []string
	err := filepath.WalkDir(c.Dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != c.Dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if mediaExt[strings.ToLower(filepath.Ext(p))] {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan media dir: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no media files in %s", c.Dir)
	}
	sort.Strings(paths)

	c.Skipped = map[string]error{}
	out := make([]types.Clip, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clip, err := c.Probe(ctx, p)
		if err != nil {
			c.Skipped[p] = err
			continue
		}
		out = append(out, clip)
	}
	return out, nil
}
