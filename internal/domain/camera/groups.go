package camera

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/roughcut/internal/types"
)

// Unknown is the bucket for clips matching no device convention.
const Unknown = "unknown"

var (
	presetGeneric = types.GradingPreset{
		ID:          "generic-rec709",
		Name:        "Generic Rec.709",
		Description: "Normalize exposure and white balance to Rec.709; no log conversion.",
	}
	presetMixed = types.GradingPreset{
		ID:          "mixed-match",
		Name:        "Mixed sources",
		Description: "Convert each camera family to Rec.709 with its own preset, then shot-match to the primary camera.",
	}
)

type family struct {
	id       string
	preset   types.GradingPreset
	filename *regexp.Regexp
	dir      *regexp.Regexp
	sources  []string
}

// families is the fixed device catalog, checked in order.
var families = []family{
	{
		id: "dji_drone",
		preset: types.GradingPreset{
			ID:          "dji-dlogm-rec709",
			Name:        "DJI D-Log M to Rec.709",
			Description: "Drone footage shot in D-Log M; apply the DJI Rec.709 transform, lift shadows slightly.",
		},
		filename: regexp.MustCompile(`(?i)^DJI_\d+`),
		dir:      regexp.MustCompile(`(?i)^(DJI_\d+|DJI)$`),
		sources:  []string{"dji", "drone", "mavic", "avata", "dji mini"},
	},
	{
		id: "sony_cinema",
		preset: types.GradingPreset{
			ID:          "sony-slog3-rec709",
			Name:        "Sony S-Log3 to Rec.709",
			Description: "S-Log3/S-Gamut3.Cine clips from a Sony body; apply the LC-709 conversion.",
		},
		filename: regexp.MustCompile(`(?i)^C\d{4}\.MP4$`),
		dir:      regexp.MustCompile(`(?i)^(XDROOT|CLIP)$`),
		sources:  []string{"sony", "fx3", "fx30", "fx6", "a7s3", "a7siii", "camera"},
	},
	{
		id: "sony_raw_photo",
		preset: types.GradingPreset{
			ID:          "sony-arw-develop",
			Name:        "Sony ARW develop",
			Description: "Raw stills; develop with neutral profile and match white balance to the video grade.",
		},
		filename: regexp.MustCompile(`(?i)\.ARW$`),
		sources:  []string{"photo", "raw", "still"},
	},
	{
		id: "gopro",
		preset: types.GradingPreset{
			ID:          "gopro-flat-rec709",
			Name:        "GoPro Protune Flat to Rec.709",
			Description: "Action-camera footage in Protune Flat; add contrast and reduce saturation spikes.",
		},
		filename: regexp.MustCompile(`(?i)^G[HXL]\d{6}\.(MP4|LRV)$`),
		dir:      regexp.MustCompile(`(?i)^\d{3}GOPRO$`),
		sources:  []string{"gopro", "action"},
	},
	{
		id: "iphone",
		preset: types.GradingPreset{
			ID:          "apple-log-rec709",
			Name:        "Apple Log to Rec.709",
			Description: "Phone footage; apply the Apple Log conversion or leave HLG clips at Rec.709.",
		},
		filename: regexp.MustCompile(`(?i)^IMG_\d{4}\.(MOV|MP4|HEIC)$`),
		dir:      regexp.MustCompile(`(?i)^\d{3}APPLE$`),
		sources:  []string{"iphone", "phone", "apple"},
	},
}

// Classify returns the camera family for a clip and false when no filename,
// directory or source-tag convention matches.
func Classify(clip types.Clip) (string, bool) {
	name := clip.Filename
	if name == "" {
		name = path.Base(filepathToSlash(clip.Path))
	}
	for _, f := range families {
		if f.filename != nil && f.filename.MatchString(name) {
			return f.id, true
		}
	}
	for _, dir := range parentDirs(clip.Path) {
		for _, f := range families {
			if f.dir != nil && f.dir.MatchString(dir) {
				return f.id, true
			}
		}
	}
	src := strings.ToLower(strings.TrimSpace(clip.Source))
	if src != "" {
		for _, f := range families {
			for _, alias := range f.sources {
				if src == alias || strings.HasPrefix(src, alias+" ") || strings.HasPrefix(src, alias+"_") {
					return f.id, true
				}
			}
		}
	}
	return Unknown, false
}

// PresetFor returns the grading preset for a family id.
func PresetFor(id string) types.GradingPreset {
	for _, f := range families {
		if f.id == id {
			return f.preset
		}
	}
	return presetGeneric
}

// Group buckets clips by camera family and recommends one preset per group
// plus a project-level preset, which falls back to the mixed preset when
// more than one known family is present. The unknown bucket carries the
// UnrecognizedCamera code.
func Group(clips []types.Clip) types.ColorGrading {
	byFamily := map[string][]string{}
	for _, c := range clips {
		id, _ := Classify(c)
		byFamily[id] = append(byFamily[id], c.Filename)
	}

	ids := make([]string, 0, len(byFamily))
	for id := range byFamily {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		// unknown always last
		if (ids[i] == Unknown) != (ids[j] == Unknown) {
			return ids[j] == Unknown
		}
		return ids[i] < ids[j]
	})

	out := types.ColorGrading{Groups: make([]types.CameraGroup, 0, len(ids))}
	var known []string
	for _, id := range ids {
		names := byFamily[id]
		sort.Strings(names)
		g := types.CameraGroup{Source: id, Clips: names, Preset: PresetFor(id)}
		if id == Unknown {
			g.Code = types.CodeUnrecognizedCamera
		} else {
			known = append(known, id)
		}
		out.Groups = append(out.Groups, g)
	}
	out.Families = len(known)
	switch len(known) {
	case 0:
		out.ProjectPreset = presetGeneric
	case 1:
		out.ProjectPreset = PresetFor(known[0])
	default:
		out.ProjectPreset = presetMixed
	}
	return out
}

func parentDirs(p string) []string {
	p = filepathToSlash(p)
	dir := path.Dir(p)
	var out []string
	for dir != "." && dir != "/" && dir != "" {
		out = append(out, path.Base(dir))
		next := path.Dir(dir)
		if next == dir {
			break
		}
		dir = next
	}
	return out
}

func filepathToSlash(p string) string { return strings.ReplaceAll(p, "\\", "/") }
