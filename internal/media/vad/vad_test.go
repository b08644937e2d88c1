package vad

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voxnote/internal/services"
)

var testParams = Params{Threshold: 0.5, NegThreshold: 0.35, MinSilenceMs: 90, MinSpeechMs: 60}

func frames(values ...float64) []float64 { return values }

func TestSegmentsHysteresis(t *testing.T) {
	const frameSec = 0.03
	tests := []struct {
		name  string
		probs []float64
		want  []Segment
	}{
		{
			name:  "silence only",
			probs: frames(0, 0.1, 0.2, 0.1),
		},
		{
			name:  "speech to end of file",
			probs: frames(0, 0.9, 0.9, 0.9),
			want:  []Segment{{Start: 0.03, End: 0.12}},
		},
		{
			name: "short pause is bridged",
			// Two silent frames (60 ms) are below the 90 ms minimum.
			probs: frames(0.9, 0.9, 0.1, 0.1, 0.9, 0.9, 0, 0, 0, 0),
			want:  []Segment{{Start: 0, End: 0.18}},
		},
		{
			name:  "values between thresholds keep speech going",
			probs: frames(0.9, 0.4, 0.4, 0.4, 0.4, 0.9, 0, 0, 0, 0),
			want:  []Segment{{Start: 0, End: 0.18}},
		},
		{
			name:  "too short segment dropped",
			probs: frames(0, 0.9, 0, 0, 0, 0, 0.9, 0.9, 0.9, 0, 0, 0, 0),
			want:  []Segment{{Start: 0.18, End: 0.27}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segments(tt.probs, frameSec, testParams)
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i].Start-tt.want[i].Start) > 1e-9 || math.Abs(got[i].End-tt.want[i].End) > 1e-9 {
					t.Fatalf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEnergyClassifier(t *testing.T) {
	c := EnergyClassifier{}
	silent := make([]int16, 480)
	if p, _ := c.Score(silent, 16000); p != 0 {
		t.Fatalf("expected 0 for silence, got %v", p)
	}
	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 16000
	}
	if p, _ := c.Score(loud, 16000); p != 1 {
		t.Fatalf("expected 1 for loud frame, got %v", p)
	}
}

func writeWAV(t *testing.T, path string, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{Data: samples, Format: &audio.Format{NumChannels: 1, SampleRate: 16000}, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func tone(seconds float64, amplitude float64) []int {
	n := int(seconds * 16000)
	out := make([]int, n)
	for i := range out {
		out[i] = int(amplitude * math.Sin(2*math.Pi*220*float64(i)/16000))
	}
	return out
}

func TestDetectSpeechSegmentsFromWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	var samples []int
	samples = append(samples, tone(0.6, 0)...)
	samples = append(samples, tone(0.9, 12000)...)
	samples = append(samples, tone(0.6, 0)...)
	writeWAV(t, path, samples)

	d, err := NewDetector(BackendEnergy, Params{Threshold: 0.5, NegThreshold: 0.35, MinSilenceMs: 300, MinSpeechMs: 250})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	segs, err := d.DetectSpeechSegments(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectSpeechSegments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected one segment, got %+v", segs)
	}
	if math.Abs(segs[0].Start-0.6) > 0.031 || math.Abs(segs[0].End-1.5) > 0.031 {
		t.Fatalf("unexpected segment %+v", segs[0])
	}
}

func TestDetectSpeechSegmentsSilentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "silence.wav")
	writeWAV(t, path, tone(1, 0))
	d, _ := NewDetector("", testParams)
	segs, err := d.DetectSpeechSegments(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectSpeechSegments: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected no segments, got %+v", segs)
	}
}

func TestReadMono16RejectsNonWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadMono16(path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewDetectorUnknownBackend(t *testing.T) {
	if _, err := NewDetector("silero", testParams); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
