package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"voxnote/internal/services"
)

// Interval is a span of audio in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start.
func (i Interval) Duration() float64 { return i.End - i.Start }

// EscapeFilterValue escapes characters that are special inside a
// filtergraph option value.
func EscapeFilterValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case '\\', ':', ',', ' ':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PrepareFilter returns the high-pass, low-pass, denoise, and loudness chain
// used to prepare audio for speech detection. The denoise model must exist.
func PrepareFilter(denoiseModel string) (string, error) {
	if strings.TrimSpace(denoiseModel) == "" {
		return "", services.Wrap(services.ErrConfiguration, "prepare", "locate denoise model", "processing.denoise_model is not set", nil)
	}
	info, err := os.Stat(denoiseModel)
	if err != nil || info.IsDir() {
		if err == nil {
			err = errors.New("is a directory")
		}
		return "", services.Wrap(services.ErrConfiguration, "prepare", "locate denoise model",
			fmt.Sprintf("denoise model file is missing: %s", denoiseModel), err)
	}
	return "highpass=f=80, lowpass=f=7800, " +
		"arnndn=m=" + EscapeFilterValue(denoiseModel) + ":mix=0.8, " +
		"loudnorm=I=-16:LRA=11:TP=-1.5", nil
}

// MergeIntervals pads each segment by padMs on both sides, clamps starts at
// zero, drops empty spans, and merges spans that touch or overlap.
func MergeIntervals(segments []Interval, padMs int) []Interval {
	pad := float64(padMs) / 1000.0
	padded := make([]Interval, 0, len(segments))
	for _, seg := range segments {
		start := max(0, seg.Start-pad)
		end := seg.End + pad
		if end > start {
			padded = append(padded, Interval{Start: start, End: end})
		}
	}
	if len(padded) == 0 {
		return nil
	}
	slices.SortStableFunc(padded, func(a, b Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})
	merged := []Interval{padded[0]}
	for _, iv := range padded[1:] {
		cur := &merged[len(merged)-1]
		if iv.Start <= cur.End {
			cur.End = max(cur.End, iv.End)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// BuildTrimFilter returns a filter_complex graph that cuts each merged
// interval from input 0 and concatenates them into [out].
func BuildTrimFilter(segments []Interval, padMs int) (string, []Interval, error) {
	merged := MergeIntervals(segments, padMs)
	if len(merged) == 0 {
		return "", nil, services.Wrap(services.ErrNoSpeech, "trim", "build filter",
			"no speech segments detected; the recording may be silent or too quiet (try lowering vad.threshold)", nil)
	}
	parts := make([]string, 0, len(merged)+1)
	var inputs strings.Builder
	for i, iv := range merged {
		parts = append(parts, fmt.Sprintf("[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d]",
			formatSeconds(iv.Start), formatSeconds(iv.End), i))
		fmt.Fprintf(&inputs, "[a%d]", i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[out]", inputs.String(), len(merged)))
	return strings.Join(parts, ";"), merged, nil
}

// formatSeconds prints the shortest exact decimal, keeping one fractional
// digit for whole numbers ("0.0", "1.5").
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var codecs = map[string]string{
	"m4a":  "aac",
	"mp3":  "libmp3lame",
	"wav":  "pcm_s16le",
	"ogg":  "libvorbis",
	"flac": "flac",
}

// CodecForExtension maps an output extension to an ffmpeg audio encoder.
// Unknown extensions use aac.
func CodecForExtension(ext string) string {
	if codec, ok := codecs[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return codec
	}
	return "aac"
}
