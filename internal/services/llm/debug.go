package llm

import (
	"path/filepath"
	"time"

	"voxnote/internal/digest"
	"voxnote/internal/ledger"
	"voxnote/internal/logging"
)

// DebugFile is the exchange log written when llm.debug is enabled.
const DebugFile = "llm_debug.jsonl"

type debugPayload struct {
	Model   string         `json:"model"`
	Format  string         `json:"format"`
	Options map[string]int `json:"options"`
}

type debugEntry struct {
	TS              string       `json:"ts"`
	Model           string       `json:"model"`
	Error           string       `json:"error"`
	NoteLen         int          `json:"note_len"`
	NoteSHA256      string       `json:"note_sha256"`
	Payload         debugPayload `json:"payload"`
	ResponseContent string       `json:"response_content"`
}

func (c *Client) debugLog(noteText string, payload chatRequest, content, msg string) {
	if !c.cfg.Debug || c.cfg.StateDir == "" {
		return
	}
	entry := debugEntry{
		TS:         c.now().Format(time.RFC3339Nano),
		Model:      c.cfg.Model,
		Error:      msg,
		NoteLen:    len([]rune(noteText)),
		NoteSHA256: digest.String(noteText),
		Payload: debugPayload{
			Model:   payload.Model,
			Format:  payload.Format,
			Options: payload.Options,
		},
		ResponseContent: content,
	}
	if err := ledger.AppendLine(filepath.Join(c.cfg.StateDir, DebugFile), entry); err != nil {
		c.logger.Warn("llm debug log write failed", logging.Error(err))
	}
}
