// Package transcode maps "<Format>-<Resolution>" variant keys to concrete
// encode parameters.
package transcode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Known format and resolution labels.
const (
	FormatMP4  = "MP4"
	FormatWebM = "WebM"
	FormatMOV  = "MOV"

	Resolution480p  = "480p"
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

// Params are the engine settings derived from a variant.
type Params struct {
	Width        int
	Height       int
	VideoBitrate string
	Container    string
	Extension    string
	VideoCodec   string
	AudioCodec   string
	SpeedOptions []string
}

// Size renders the frame size as "WxH".
func (p Params) Size() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// SplitVariant separates a variant key into its format and resolution parts.
// A key without a separator yields an empty resolution.
func SplitVariant(variant string) (format, resolution string) {
	format, resolution, _ = strings.Cut(strings.TrimSpace(variant), "-")
	return format, resolution
}

// ParamsFor derives encode parameters from a variant. Unrecognised
// resolutions fall back to 480p and unrecognised formats fall back to MP4.
func ParamsFor(variant string) Params {
	format, resolution := SplitVariant(variant)
	var p Params

	switch resolution {
	case Resolution1080p:
		p.Width, p.Height, p.VideoBitrate = 1920, 1080, "5000k"
	case Resolution720p:
		p.Width, p.Height, p.VideoBitrate = 1280, 720, "2500k"
	default:
		p.Width, p.Height, p.VideoBitrate = 854, 480, "1000k"
	}

	switch format {
	case FormatWebM:
		p.Container, p.Extension = "webm", "webm"
		p.VideoCodec, p.AudioCodec = "libvpx-vp9", "libopus"
		p.SpeedOptions = []string{"-deadline", "realtime", "-cpu-used", "4"}
	case FormatMOV:
		p.Container, p.Extension = "mov", "mov"
		p.VideoCodec, p.AudioCodec = "libx264", "aac"
		p.SpeedOptions = []string{"-preset", "fast"}
	default:
		p.Container, p.Extension = "mp4", "mp4"
		p.VideoCodec, p.AudioCodec = "libx264", "aac"
		p.SpeedOptions = []string{"-preset", "fast"}
	}
	return p
}

// OutputPath returns "<dir>/<taskID>.<ext>" for the variant.
func OutputPath(dir, taskID, variant string) string {
	return filepath.Join(dir, taskID+"."+ParamsFor(variant).Extension)
}

// Validate reports whether a variant uses a known format and resolution.
// Unknown variants still encode through the fallbacks; callers use this only
// to warn about likely typos.
func Validate(variant string) error {
	format, resolution := SplitVariant(variant)
	switch format {
	case FormatMP4, FormatWebM, FormatMOV:
	default:
		return fmt.Errorf("unknown format %q in variant %q", format, variant)
	}
	switch resolution {
	case Resolution480p, Resolution720p, Resolution1080p:
	default:
		return fmt.Errorf("unknown resolution %q in variant %q", resolution, variant)
	}
	return nil
}

// KnownVariants lists every format and resolution combination.
func KnownVariants() []string {
	formats := []string{FormatMP4, FormatWebM, FormatMOV}
	resolutions := []string{Resolution480p, Resolution720p, Resolution1080p}
	out := make([]string, 0, len(formats)*len(resolutions))
	for _, f := range formats {
		for _, r := range resolutions {
			out = append(out, f+"-"+r)
		}
	}
	return out
}
