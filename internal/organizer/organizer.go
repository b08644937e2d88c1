package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"voxnote/internal/config"
	"voxnote/internal/fileutil"
	"voxnote/internal/logging"
	"voxnote/internal/services"
	"voxnote/internal/services/llm"
	"voxnote/internal/textutil"
)

// NoteTimeLayout names notes by recording time.
const NoteTimeLayout = "2006-01-02_15-04-05"

// Request describes one note to write.
type Request struct {
	// SourcePath is the audio file moved into the archive (the input copy,
	// not a cache artifact).
	SourcePath string
	Text       string
	Analysis   llm.Analysis
	RecordedAt time.Time
	// MetadataDump is optional pretty JSON rendered under "Audio metadata".
	MetadataDump string
}

// NoteContext is the result of a successful Organize.
type NoteContext struct {
	ID          string
	NotePath    string
	ArchivePath string
	Analysis    llm.Analysis
	Text        string
}

// Organizer writes markdown notes and archives their source audio.
type Organizer struct {
	outputDir    string
	archiveDir   string
	whisperModel string
	language     string
	logger       *slog.Logger

	newID    func() string
	moveFile func(src, dst string) error
	rename   func(oldPath, newPath string) error
}

// New constructs an organizer from the configured output and archive roots.
func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		outputDir:    cfg.Paths.Output,
		archiveDir:   cfg.Paths.Archive,
		whisperModel: cfg.Transcription.Model,
		language:     cfg.Transcription.Language,
		logger:       logging.NewComponentLogger(logger, "organizer"),
		newID:        newNoteID,
		moveFile:     fileutil.MoveFile,
		rename:       os.Rename,
	}
}

func newNoteID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// Organize writes the note to a temp file, archives the audio, then renames
// the note into place. A failure after the audio has moved puts it back and
// removes the temp note before the original error is returned.
func (o *Organizer) Organize(ctx context.Context, req Request) (NoteContext, error) {
	logger := logging.WithContext(ctx, o.logger)
	if err := ctx.Err(); err != nil {
		return NoteContext{}, err
	}
	source, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return NoteContext{}, services.Wrap(services.ErrValidation, "organize", "resolve source", req.SourcePath, err)
	}
	if resolved, err := filepath.EvalSymlinks(source); err == nil {
		source = resolved
	}

	id := o.newID()
	archiveName := id + "_" + filepath.Base(source)
	notePath, err := o.notePath(req.Analysis, id, req.RecordedAt)
	if err != nil {
		return NoteContext{}, err
	}
	tempPath := notePath[:len(notePath)-len(filepath.Ext(notePath))] + ".tmp"
	archivePath := filepath.Join(o.archiveDir, archiveName)

	body := o.render(noteFields{
		ID:           id,
		Analysis:     req.Analysis,
		ArchiveName:  archiveName,
		SourceName:   filepath.Base(source),
		RecordedAt:   req.RecordedAt,
		MetadataDump: req.MetadataDump,
		Text:         req.Text,
	})

	moved := false
	rollback := func(cause error) error {
		if moved {
			if err := o.moveFile(archivePath, source); err != nil {
				logging.WarnWithContext(logger, "failed to restore audio after organize failure", "organize_rollback",
					logging.String("archive_path", archivePath),
					logging.String("source_path", source),
					logging.Error(err),
					logging.String(logging.FieldImpact, "audio remains in the archive without a note"),
					logging.String(logging.FieldErrorHint, "move the file back to input/ manually and rerun process"),
				)
			}
		}
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("temp note cleanup failed", logging.String("path", tempPath), logging.Error(err))
		}
		return cause
	}

	if err := os.WriteFile(tempPath, []byte(body), 0o644); err != nil {
		return NoteContext{}, rollback(storageError("write note", tempPath, err))
	}
	if err := os.MkdirAll(o.archiveDir, 0o755); err != nil {
		return NoteContext{}, rollback(storageError("create archive dir", o.archiveDir, err))
	}
	if err := o.moveFile(source, archivePath); err != nil {
		return NoteContext{}, rollback(storageError("archive audio", source, err))
	}
	moved = true
	if err := o.rename(tempPath, notePath); err != nil {
		return NoteContext{}, rollback(storageError("finalize note", notePath, err))
	}

	logger.Info("note organized",
		logging.String("note_id", id),
		logging.String("note_path", notePath),
		logging.String("archive_path", archivePath),
	)
	return NoteContext{
		ID:          id,
		NotePath:    notePath,
		ArchivePath: archivePath,
		Analysis:    req.Analysis,
		Text:        req.Text,
	}, nil
}

// notePath builds <output>/<category>/<time>_<title>.md, appending the
// first 8 id characters when that name is taken.
func (o *Organizer) notePath(analysis llm.Analysis, id string, recordedAt time.Time) (string, error) {
	category := analysis.Category
	if category == "" {
		category = "misc"
	}
	title := analysis.Title
	if title == "" {
		title = id
	}
	dir := filepath.Join(o.outputDir, textutil.NoteSlug(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", storageError("create category dir", dir, err)
	}
	stem := recordedAt.Format(NoteTimeLayout) + "_" + textutil.NoteSlug(title)
	path := filepath.Join(dir, stem+".md")
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(dir, stem+"_"+id[:8]+".md")
	}
	return path, nil
}

// unavailableErrnos indicate the output or archive volume went away rather
// than a problem with the note itself.
var unavailableErrnos = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EIO,
	syscall.ESTALE,
	syscall.ENOSPC,
}

func storageError(operation, path string, err error) error {
	marker := services.ErrValidation
	for _, target := range unavailableErrnos {
		if errors.Is(err, target) {
			marker = services.ErrTransient
			break
		}
	}
	return services.Wrap(marker, "organize", operation, path, err)
}
