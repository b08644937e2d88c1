package metadata

import (
	"fmt"
	"strconv"
	"time"
)

// Summary is the compact, human-oriented view printed by process --show-metadata.
type Summary struct {
	RecordedAt       *time.Time           `json:"recorded_at"`
	RecordedAtSource string               `json:"recorded_at_source"`
	DurationSeconds  *float64             `json:"duration_seconds"`
	DurationHMS      string               `json:"duration_hms,omitempty"`
	Codec            string               `json:"codec,omitempty"`
	CodecLongName    string               `json:"codec_long_name,omitempty"`
	SampleRate       *int64               `json:"sample_rate"`
	Channels         *int64               `json:"channels"`
	ChannelLayout    string               `json:"channel_layout,omitempty"`
	BitRate          *int64               `json:"bit_rate"`
	TotalBitRate     *int64               `json:"total_bit_rate"`
	Title            string               `json:"title,omitempty"`
	VoiceMemoUUID    string               `json:"voice_memo_uuid,omitempty"`
	Encoder          string               `json:"encoder,omitempty"`
	Language         string               `json:"language,omitempty"`
	Kind             string               `json:"kind,omitempty"`
	ContentType      string               `json:"content_type,omitempty"`
	FileTimes        map[string]time.Time `json:"file_times"`
}

// Summarize extracts the interesting fields from raw ffprobe, mdls, and stat data.
func Summarize(m Metadata) Summary {
	format := asMap(m.FFprobe["format"])
	stream := firstAudioStream(m.FFprobe)
	tags := asMap(format["tags"])
	streamTags := asMap(stream["tags"])

	s := Summary{
		RecordedAtSource: m.RecordedAtSource,
		Codec:            asString(stream["codec_name"]),
		CodecLongName:    asString(stream["codec_long_name"]),
		SampleRate:       asInt(stream["sample_rate"]),
		Channels:         asInt(stream["channels"]),
		ChannelLayout:    asString(stream["channel_layout"]),
		BitRate:          firstInt(stream["bit_rate"], m.Mdls["kMDItemAudioBitRate"]),
		TotalBitRate:     firstInt(format["bit_rate"], m.Mdls["kMDItemTotalBitRate"]),
		Title:            asString(tags["title"]),
		VoiceMemoUUID:    asString(tags["voice-memo-uuid"]),
		Encoder:          asString(tags["encoder"]),
		Language:         asString(streamTags["language"]),
		Kind:             asString(m.Mdls["kMDItemKind"]),
		ContentType:      asString(m.Mdls["kMDItemContentType"]),
		FileTimes:        make(map[string]time.Time),
	}
	if !m.RecordedAt.IsZero() {
		t := m.RecordedAt
		s.RecordedAt = &t
	}

	s.DurationSeconds = asFloat(m.Mdls["kMDItemDurationSeconds"])
	if s.DurationSeconds == nil {
		s.DurationSeconds = asFloat(format["duration"])
	}
	if s.DurationSeconds != nil {
		total := int(*s.DurationSeconds)
		s.DurationHMS = fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
	}

	for key, label := range map[string]string{"st_birthtime": "created", "st_mtime": "modified", "st_ctime": "changed"} {
		if t, ok := StatTime(m.Stat, key); ok {
			s.FileTimes[label] = t
		}
	}
	return s
}

func firstAudioStream(info map[string]any) map[string]any {
	streams, _ := info["streams"].([]any)
	for _, raw := range streams {
		if s := asMap(raw); asString(s["codec_type"]) == "audio" {
			return s
		}
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func asInt(v any) *int64 {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func firstInt(values ...any) *int64 {
	for _, v := range values {
		if n := asInt(v); n != nil && *n != 0 {
			return n
		}
	}
	return nil
}
