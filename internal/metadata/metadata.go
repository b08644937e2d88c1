package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"voxnote/internal/ledger"
	"voxnote/internal/logging"
	"voxnote/internal/media/ffprobe"
)

// Recording time sources, as stored in recorded_at_source.
const (
	SourceFFprobe   = "ffprobe.format.tags.creation_time"
	SourceMdls      = "mdls"
	SourceBirthtime = "stat.st_birthtime"
	SourceMtime     = "stat.st_mtime"
)

// mdlsDateKeys are consulted in order.
var mdlsDateKeys = []string{
	"kMDItemContentCreationDate",
	"kMDItemRecordingDate",
	"kMDItemFSCreationDate",
	"kMDItemFSContentChangeDate",
	"kMDItemContentModificationDate",
}

// Metadata describes one recording.
type Metadata struct {
	RecordedAt       time.Time
	RecordedAtSource string
	Mdls             map[string]any
	FFprobe          map[string]any
	Stat             map[string]any
}

// Collector gathers metadata with external tools. Missing tools are not
// errors; their sections are left empty.
type Collector struct {
	ffprobeBinary string
	mdlsBinary    string
	logger        *slog.Logger
}

// NewCollector returns a collector using the given ffprobe binary.
func NewCollector(ffprobeBinary string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{ffprobeBinary: ffprobeBinary, mdlsBinary: "mdls", logger: logger}
}

// WithMdlsBinary overrides the mdls executable (for testing).
func (c *Collector) WithMdlsBinary(binary string) { c.mdlsBinary = binary }

// Collect reads metadata for path. Only a failure to stat the file is an error.
func (c *Collector) Collect(ctx context.Context, path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("stat %s: %w", path, err)
	}
	times := statTimes(path, info)
	meta := Metadata{Stat: times.asMap()}

	if result, err := ffprobe.Inspect(ctx, c.ffprobeBinary, path); err == nil {
		meta.FFprobe = result.AsMap()
		if t, ok := parseTime(result.CreationTime()); ok {
			meta.RecordedAt, meta.RecordedAtSource = t, SourceFFprobe
		}
	} else {
		c.logger.Debug("ffprobe metadata unavailable", logging.String(logging.FieldFile, path), logging.Error(err))
	}

	if mdls, err := runMdls(ctx, c.mdlsBinary, path); err == nil {
		meta.Mdls = mdls
		if meta.RecordedAtSource == "" {
			for _, key := range mdlsDateKeys {
				if s, ok := mdls[key].(string); ok {
					if t, ok := parseTime(s); ok {
						meta.RecordedAt, meta.RecordedAtSource = t, SourceMdls
						break
					}
				}
			}
		}
	} else {
		c.logger.Debug("mdls metadata unavailable", logging.String(logging.FieldFile, path), logging.Error(err))
	}

	if meta.RecordedAtSource == "" {
		if !times.birth.IsZero() {
			meta.RecordedAt, meta.RecordedAtSource = times.birth, SourceBirthtime
		} else {
			meta.RecordedAt, meta.RecordedAtSource = times.mtime, SourceMtime
		}
	}
	return meta, nil
}

var extraLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := ledger.ParseTime(value); err == nil {
		return t, true
	}
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Entry converts m into a ledger entry for the recording with the given digest.
func (m Metadata) Entry(digest, sourcePath, sourceName string) ledger.MetadataEntry {
	entry := ledger.MetadataEntry{
		CollectedAt:        ledger.Now(),
		OriginalHash:       digest,
		OriginalSourcePath: sourcePath,
		OriginalSourceName: sourceName,
		RecordedAtSource:   m.RecordedAtSource,
		Mdls:               m.Mdls,
		FFprobe:            m.FFprobe,
		Stat:               m.Stat,
	}
	if !m.RecordedAt.IsZero() {
		t := ledger.NewTime(m.RecordedAt)
		entry.RecordedAt = &t
	}
	return entry
}

// FromEntry restores Metadata saved in the ledger.
func FromEntry(entry ledger.MetadataEntry) Metadata {
	m := Metadata{
		RecordedAtSource: entry.RecordedAtSource,
		Mdls:             entry.Mdls,
		FFprobe:          entry.FFprobe,
		Stat:             entry.Stat,
	}
	if entry.RecordedAt != nil {
		m.RecordedAt = entry.RecordedAt.Time
	}
	return m
}

func lookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}
