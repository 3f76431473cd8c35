package ffmpeg

import (
	"math"
	"strconv"
	"strings"
)

// Progress is one encoder progress event. Percent is negative when the
// encoder cannot compute one, CurrentKbps is 0 when unknown, and Timemark is
// the encoded position as "HH:MM:SS.xx" or empty.
type Progress struct {
	Percent     float64
	CurrentKbps float64
	Timemark    string
}

// progressBlock accumulates the key=value lines ffmpeg writes between two
// "progress=" markers.
type progressBlock struct {
	timemark string
	kbps     float64
}

// apply consumes one line and reports whether it closed a block. Both
// "progress=continue" and "progress=end" close one.
func (b *progressBlock) apply(line string) bool {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time":
		if _, valid := ParseTimemark(value); valid {
			b.timemark = trimTimemark(value)
		}
	case "bitrate":
		b.kbps = parseBitrate(value)
	case "progress":
		return true
	}
	return false
}

func (b *progressBlock) snapshot() Progress {
	return Progress{Percent: -1, CurrentKbps: b.kbps, Timemark: b.timemark}
}

// ParseTimemark converts "HH:MM:SS(.frac)" into seconds. Negative or
// malformed values are reported as invalid.
func ParseTimemark(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || seconds < 0 || seconds >= 60 || math.IsNaN(seconds) {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// trimTimemark shortens ffmpeg's microsecond fraction to centiseconds.
func trimTimemark(value string) string {
	dot := strings.LastIndexByte(value, '.')
	if dot < 0 || len(value)-dot <= 3 {
		return value
	}
	return value[:dot+3]
}

// parseBitrate reads values like "2480.3kbits/s" and returns 0 for "N/A".
func parseBitrate(value string) float64 {
	value = strings.TrimSuffix(strings.TrimSpace(value), "kbits/s")
	kbps, err := strconv.ParseFloat(value, 64)
	if err != nil || kbps <= 0 || math.IsNaN(kbps) || math.IsInf(kbps, 0) {
		return 0
	}
	return kbps
}
