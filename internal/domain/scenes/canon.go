package scenes

import (
	"regexp"
	"strings"
)

// Canonical shot scales. Every label variant observed from the classifier
// must appear in shotScaleSynonyms; anything else stays distinct.
const (
	ExtremeWideShot    = "Extreme Wide Shot"
	WideShot           = "Wide Shot"
	FullShot           = "Full Shot"
	MediumWideShot     = "Medium Wide Shot"
	MediumShot         = "Medium Shot"
	MediumCloseUp      = "Medium Close-Up"
	CloseUp            = "Close-Up"
	ExtremeCloseUp     = "Extreme Close-Up"
	OverTheShoulder    = "Over-the-Shoulder"
	PointOfView        = "Point of View"
	InsertShot         = "Insert"
	movementStatic     = "Static"
	movementPan        = "Pan"
	movementTilt       = "Tilt"
	movementTracking   = "Tracking"
	movementHandheld   = "Handheld"
	movementZoom       = "Zoom"
	movementAerial     = "Aerial"
	movementGimbal     = "Gimbal"
	subjectPerson      = "person"
	subjectObject      = "object"
	subjectEnvironment = "environment"
	subjectText        = "text"
)

// Focus values exposed to the plan synthesizer.
const (
	FocusPerson      = subjectPerson
	FocusObject      = subjectObject
	FocusEnvironment = subjectEnvironment
)

var shotScaleSynonyms = map[string]string{
	"ews":               ExtremeWideShot,
	"xws":               ExtremeWideShot,
	"els":               ExtremeWideShot,
	"xls":               ExtremeWideShot,
	"extreme wide":      ExtremeWideShot,
	"extreme wide shot": ExtremeWideShot,
	"extreme long shot": ExtremeWideShot,
	"establishing shot": ExtremeWideShot,
	"ws":                WideShot,
	"ls":                WideShot,
	"wide":              WideShot,
	"wide shot":         WideShot,
	"long shot":         WideShot,
	"fs":                FullShot,
	"full shot":         FullShot,
	"full body shot":    FullShot,
	"mws":               MediumWideShot,
	"mls":               MediumWideShot,
	"medium wide":       MediumWideShot,
	"medium wide shot":  MediumWideShot,
	"medium long shot":  MediumWideShot,
	"medium full shot":  MediumWideShot,
	"cowboy shot":       MediumWideShot,
	"ms":                MediumShot,
	"medium":            MediumShot,
	"medium shot":       MediumShot,
	"mid shot":          MediumShot,
	"mcu":               MediumCloseUp,
	"medium close up":   MediumCloseUp,
	"medium close-up":   MediumCloseUp,
	"medium closeup":    MediumCloseUp,
	"cu":                CloseUp,
	"close up":          CloseUp,
	"close-up":          CloseUp,
	"closeup":           CloseUp,
	"close up shot":     CloseUp,
	"close-up shot":     CloseUp,
	"ecu":               ExtremeCloseUp,
	"xcu":               ExtremeCloseUp,
	"extreme close up":  ExtremeCloseUp,
	"extreme close-up":  ExtremeCloseUp,
	"extreme closeup":   ExtremeCloseUp,
	"macro":             ExtremeCloseUp,
	"ots":               OverTheShoulder,
	"over the shoulder": OverTheShoulder,
	"over-the-shoulder": OverTheShoulder,
	"pov":               PointOfView,
	"point of view":     PointOfView,
	"insert":            InsertShot,
	"insert shot":       InsertShot,
}

var movementSynonyms = map[string]string{
	"static":     movementStatic,
	"still":      movementStatic,
	"locked":     movementStatic,
	"locked off": movementStatic,
	"locked-off": movementStatic,
	"tripod":     movementStatic,
	"fixed":      movementStatic,
	"none":       movementStatic,
	"pan":        movementPan,
	"panning":    movementPan,
	"tilt":       movementTilt,
	"tilting":    movementTilt,
	"tracking":   movementTracking,
	"track":      movementTracking,
	"dolly":      movementTracking,
	"follow":     movementTracking,
	"following":  movementTracking,
	"handheld":   movementHandheld,
	"hand-held":  movementHandheld,
	"hand held":  movementHandheld,
	"shaky":      movementHandheld,
	"zoom":       movementZoom,
	"zoom in":    movementZoom,
	"zoom out":   movementZoom,
	"zooming":    movementZoom,
	"aerial":     movementAerial,
	"drone":      movementAerial,
	"flyover":    movementAerial,
	"gimbal":     movementGimbal,
	"stabilized": movementGimbal,
	"stabilised": movementGimbal,
	"steadicam":  movementGimbal,
}

var subjectSynonyms = map[string]string{
	"person":       subjectPerson,
	"people":       subjectPerson,
	"persons":      subjectPerson,
	"human":        subjectPerson,
	"host":         subjectPerson,
	"presenter":    subjectPerson,
	"speaker":      subjectPerson,
	"face":         subjectPerson,
	"group":        subjectPerson,
	"object":       subjectObject,
	"objects":      subjectObject,
	"product":      subjectObject,
	"item":         subjectObject,
	"tool":         subjectObject,
	"hands":        subjectObject,
	"environment":  subjectEnvironment,
	"landscape":    subjectEnvironment,
	"scenery":      subjectEnvironment,
	"location":     subjectEnvironment,
	"background":   subjectEnvironment,
	"architecture": subjectEnvironment,
	"room":         subjectEnvironment,
	"interior":     subjectEnvironment,
	"exterior":     subjectEnvironment,
	"text":         subjectText,
	"graphic":      subjectText,
	"graphics":     subjectText,
	"screen":       subjectText,
}

var (
	reParen = regexp.MustCompile(`^\s*(.*?)\s*\(([^()]*)\)\s*$`)
	reSpace = regexp.MustCompile(`\s+`)
)

// CanonicalShotScale maps a shot-scale label to its canonical name. Forms
// like "Medium Wide Shot (MWS)" resolve when either part is known and both
// known parts agree; unknown labels are returned in normalised form.
func CanonicalShotScale(label string) string { return canonicalize(label, shotScaleSynonyms) }

func CanonicalMovement(label string) string { return canonicalize(label, movementSynonyms) }

func CanonicalSubject(label string) string { return canonicalize(label, subjectSynonyms) }

func canonicalize(label string, table map[string]string) string {
	key := normalizeLabel(label)
	if key == "" {
		return ""
	}
	if v, ok := table[key]; ok {
		return v
	}
	m := reParen.FindStringSubmatch(key)
	if m == nil {
		return key
	}
	outer, inner := table[m[1]], table[m[2]]
	switch {
	case outer != "" && inner != "" && outer != inner:
		// conflicting parts: keep the raw label distinct
		return key
	case outer != "":
		return outer
	case inner != "":
		return inner
	}
	return key
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimRight(s, ".")
	return reSpace.ReplaceAllString(s, " ")
}
