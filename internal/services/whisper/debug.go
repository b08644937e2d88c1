package whisper

import (
	"path/filepath"
	"time"

	"voxnote/internal/digest"
	"voxnote/internal/ledger"
	"voxnote/internal/logging"
)

type debugEntry struct {
	TS           string   `json:"ts"`
	AudioPath    string   `json:"audio_path"`
	Error        string   `json:"error"`
	ReturnCode   *int     `json:"returncode"`
	Cmd          []string `json:"cmd"`
	StdoutLen    int      `json:"stdout_len"`
	StderrLen    int      `json:"stderr_len"`
	StdoutSHA256 string   `json:"stdout_sha256"`
	StderrSHA256 string   `json:"stderr_sha256"`
	Stdout       string   `json:"stdout"`
	Stderr       string   `json:"stderr"`
}

// debugLog appends one exchange to whisper_debug.jsonl. Failures are logged
// and otherwise ignored.
func (s *Service) debugLog(audioPath string, cmd []string, returnCode *int, res RunResult, msg string) {
	if !s.cfg.Debug || s.cfg.StateDir == "" {
		return
	}
	entry := debugEntry{
		TS:           time.Now().Format(time.RFC3339Nano),
		AudioPath:    audioPath,
		Error:        msg,
		ReturnCode:   returnCode,
		Cmd:          cmd,
		StdoutLen:    len(res.Stdout),
		StderrLen:    len(res.Stderr),
		StdoutSHA256: digest.String(res.Stdout),
		StderrSHA256: digest.String(res.Stderr),
		Stdout:       res.Stdout,
		Stderr:       res.Stderr,
	}
	if err := ledger.AppendLine(filepath.Join(s.cfg.StateDir, DebugFile), entry); err != nil {
		s.logger.Warn("whisper debug log write failed", logging.Error(err))
	}
}
