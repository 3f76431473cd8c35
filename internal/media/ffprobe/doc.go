// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes streams plus container format; Duration is
// the narrow probe the transcode scheduler uses to turn ffmpeg timemarks into
// percentages when the encoder cannot report one itself.
package ffprobe
