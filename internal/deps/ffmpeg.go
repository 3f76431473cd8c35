package deps

// EngineRequirements lists the binaries the encode engine executes.
func EngineRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for encoding",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Used for progress percentages; encodes still run without it",
			Optional:    true,
		},
	}
}
