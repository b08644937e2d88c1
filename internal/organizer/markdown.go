package organizer

import (
	"path"
	"strings"
	"time"

	"voxnote/internal/services/llm"
)

// RecordedAtLayout renders the "Recorded at" bullet.
const RecordedAtLayout = "2006-01-02 15:04:05-07:00"

type noteFields struct {
	ID           string
	Analysis     llm.Analysis
	ArchiveName  string
	SourceName   string
	RecordedAt   time.Time
	MetadataDump string
	Text         string
}

func (o *Organizer) render(f noteFields) string {
	lines := []string{
		"# " + f.Analysis.Title,
		"",
		"- **ID:** " + f.ID,
		"- **Audio:** " + path.Join("archive", f.ArchiveName),
		"- **Source:** " + f.SourceName,
		"- **Recorded at:** " + f.RecordedAt.Format(RecordedAtLayout),
		"- **Category:** " + f.Analysis.Category,
		"- **Whisper model:** " + o.whisperModel,
		"- **Transcription language:** " + o.language,
		"",
		"---",
		"",
	}
	if dump := strings.TrimSpace(f.MetadataDump); dump != "" {
		lines = append(lines,
			"## Audio metadata",
			"",
			"```json",
			dump,
			"```",
			"",
			"---",
			"",
		)
	}
	if summary := strings.TrimSpace(f.Analysis.ShortSummary); summary != "" {
		lines = append(lines, summary, "", "---", "")
	}
	lines = append(lines, strings.TrimSpace(f.Text))
	return strings.Join(lines, "\n")
}
