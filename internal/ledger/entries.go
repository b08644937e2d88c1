package ledger

// ProcessedEntry records a recording that produced a note.
type ProcessedEntry struct {
	ProcessedAt      Time   `json:"processed_at"`
	OriginalHash     string `json:"original_hash"`
	OriginalName     string `json:"original_name"`
	OriginalPath     string `json:"original_path"`
	ArchivePath      string `json:"archive_path"`
	NotePath         string `json:"note_path"`
	RecordedAt       *Time  `json:"recorded_at"`
	RecordedAtSource string `json:"recorded_at_source,omitempty"`
	// TranscribedFileHash is the digest of the audio actually sent to the
	// transcriber. A trimmed cache whose digest differs triggers reprocessing.
	TranscribedFileHash string `json:"transcribed_file_hash,omitempty"`
	TranscribedPath     string `json:"transcribed_path,omitempty"`
}

// FailedEntry saves transcription text so a later run can skip transcription.
type FailedEntry struct {
	CreatedAt Time   `json:"created_at"`
	AudioPath string `json:"audio_path"`
	Text      string `json:"text"`
	Error     string `json:"error"`
}

// CollectedEntry records one copy from a source directory into input/.
type CollectedEntry struct {
	CollectedAt        Time   `json:"collected_at"`
	OriginalHash       string `json:"original_hash"`
	OriginalSourcePath string `json:"original_source_path"`
	OriginalSourceName string `json:"original_source_name"`
	InputPath          string `json:"input_path"`
}

// MetadataEntry holds recording metadata captured from the original file.
type MetadataEntry struct {
	CollectedAt        Time           `json:"collected_at"`
	OriginalHash       string         `json:"original_hash"`
	OriginalSourcePath string         `json:"original_source_path"`
	OriginalSourceName string         `json:"original_source_name"`
	RecordedAt         *Time          `json:"recorded_at"`
	RecordedAtSource   string         `json:"recorded_at_source,omitempty"`
	Mdls               map[string]any `json:"mdls"`
	FFprobe            map[string]any `json:"ffprobe"`
	Stat               map[string]any `json:"stat"`
}
