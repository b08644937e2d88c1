package deps

import (
	"runtime"

	"voxnote/internal/config"
	"voxnote/internal/services/whisper"
)

// Requirements lists the binaries the pipeline runs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.Processing.FFmpegBinary,
			Description: "Required for prepare-vad and vad-trim",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.Processing.FFprobeBinary,
			Description: "Reads recording time and codec details",
		},
		{
			Name:        "mlx_whisper",
			Command:     cfg.Transcription.Binary,
			Description: "Required for transcription",
		},
	}
	if cfg.Transcription.Binary == whisper.DefaultBinary {
		reqs[2].Alternatives = []string{whisper.AltBinary}
	}
	if runtime.GOOS == "darwin" {
		reqs = append(reqs, Requirement{
			Name:        "mdls",
			Command:     "mdls",
			Description: "Spotlight recording dates for Voice Memos",
			Optional:    true,
		})
	}
	return reqs
}
