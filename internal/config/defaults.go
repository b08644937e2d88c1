package config

const (
	defaultInputDir              = "input"
	defaultOutputDir             = "output"
	defaultArchiveDir            = "archive"
	defaultStateDirName          = ".voxnote"
	defaultDenoiseModel          = "assets/denoise/std.rnnn"
	defaultLanguage              = "auto"
	defaultWhisperBinary         = "mlx_whisper"
	defaultWhisperTimeoutSeconds = 3600
	defaultLLMBaseURL            = "http://localhost:11434"
	defaultChatTimeoutSeconds    = 120
	defaultTokenizeTimeout       = 60
	defaultMaxRetries            = 2
	defaultRetryBackoffSeconds   = 2.0
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultPrepareTimeoutSeconds = 3600
	defaultTrimTimeoutSeconds    = 3600
	defaultVADBackend            = "energy"
	defaultVADThreshold          = 0.5
	defaultVADNegThreshold       = 0.35
	defaultMinSilenceMs          = 500
	defaultMinSpeechMs           = 250
	defaultSpeechPadMs           = 100
	defaultLogFormat             = "console"
	defaultLogLevel              = "warn"
)

var defaultSupportedFormats = []string{"m4a", "mp3", "wav", "ogg", "flac"}

// Default returns a Config populated with repository defaults. Required
// values (models and the system prompt) are left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			Input:   defaultInputDir,
			Output:  defaultOutputDir,
			Archive: defaultArchiveDir,
		},
		Transcription: Transcription{
			Language:        defaultLanguage,
			Binary:          defaultWhisperBinary,
			WhisperTimeoutS: defaultWhisperTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Stream:           true,
			ChatTimeoutS:     defaultChatTimeoutSeconds,
			TokenizeTimeoutS: defaultTokenizeTimeout,
			MaxRetries:       defaultMaxRetries,
			RetryBackoffS:    defaultRetryBackoffSeconds,
		},
		Processing: Processing{
			SupportedFormats:      append([]string(nil), defaultSupportedFormats...),
			FFmpegBinary:          defaultFFmpegBinary,
			FFprobeBinary:         defaultFFprobeBinary,
			FFmpegPrepareTimeoutS: defaultPrepareTimeoutSeconds,
			FFmpegTrimTimeoutS:    defaultTrimTimeoutSeconds,
		},
		VAD: VAD{
			Backend:              defaultVADBackend,
			Threshold:            defaultVADThreshold,
			NegThreshold:         defaultVADNegThreshold,
			MinSilenceDurationMs: defaultMinSilenceMs,
			MinSpeechDurationMs:  defaultMinSpeechMs,
			SpeechPadMs:          defaultSpeechPadMs,
		},
		Collect: Collect{
			RecursiveDefault: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
