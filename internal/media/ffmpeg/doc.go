// Package ffmpeg is the engine adapter the transcode scheduler encodes with.
//
// Engine.Encode launches ffmpeg with "-progress pipe:1", parses the key=value
// progress blocks into Progress callbacks, and returns the terminal result as
// an error. Engine.ProbeDuration delegates to ffprobe. Both binaries and any
// extra encoder arguments come from the [ffmpeg] config section.
package ffmpeg
