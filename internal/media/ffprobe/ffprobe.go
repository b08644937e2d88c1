package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	CodecType     string            `json:"codec_type"`
	Duration      string            `json:"duration"`
	BitRate       string            `json:"bit_rate"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	NBFrames      string            `json:"nb_frames"`
	Tags          map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", "--", path) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON payload.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), payload...)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// AsMap decodes the raw payload into a generic map for persistence.
func (r Result) AsMap() map[string]any {
	if len(r.raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(r.raw, &out); err != nil {
		return nil
	}
	return out
}

// AudioStream returns the first audio stream.
func (r Result) AudioStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return stream, true
		}
	}
	return Stream{}, false
}

// FormatTag returns a container tag by case-insensitive name.
func (r Result) FormatTag(name string) string {
	for k, v := range r.Format.Tags {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// CreationTime returns the container creation_time tag.
func (r Result) CreationTime() string {
	return r.FormatTag("creation_time")
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	return parseInt(r.Format.BitRate)
}

// SampleRateHz returns the stream sample rate, or 0 when unavailable.
func (s Stream) SampleRateHz() int64 { return parseInt(s.SampleRate) }

// BitRateBPS returns the stream bitrate, or 0 when unavailable.
func (s Stream) BitRateBPS() int64 { return parseInt(s.BitRate) }

// Frames returns the stream frame count, or 0 when unavailable.
func (s Stream) Frames() int64 { return parseInt(s.NBFrames) }

func parseInt(value string) int64 {
	v := parseFloat(value)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return int64(v)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
