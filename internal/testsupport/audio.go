package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Span is a stretch of tone in seconds.
type Span struct {
	Start float64
	End   float64
}

// WriteSpeechWAV writes a 16 kHz mono 16-bit WAV of total seconds that is
// silent except for a loud 220 Hz tone inside each span.
func WriteSpeechWAV(t testing.TB, path string, total float64, spans ...Span) {
	t.Helper()
	samples := make([]int, int(total*16000))
	for i := range samples {
		sec := float64(i) / 16000
		for _, s := range spans {
			if sec >= s.Start && sec < s.End {
				samples[i] = int(12000 * math.Sin(2*math.Pi*220*sec))
				break
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
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
		t.Fatalf("close %s: %v", path, err)
	}
}
