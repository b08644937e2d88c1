package vad

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-audio/wav"

	"voxnote/internal/services"
)

// Backend names accepted in vad.backend.
const (
	BackendEnergy = "energy"
	BackendWebRTC = "webrtc"
)

// FrameMs is the analysis frame length.
const FrameMs = 30

// Segment is a detected speech span in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Params controls segmentation.
type Params struct {
	Threshold    float64
	NegThreshold float64
	MinSilenceMs int
	MinSpeechMs  int
}

// Classifier scores one frame of 16-bit mono samples as a speech probability
// in [0, 1].
type Classifier interface {
	Score(frame []int16, sampleRate int) (float64, error)
}

// Detector runs a Classifier over a WAV file and segments the result.
type Detector struct {
	params     Params
	classifier Classifier
}

// NewDetector returns a detector for the named backend.
func NewDetector(backend string, params Params) (*Detector, error) {
	var classifier Classifier
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendEnergy:
		classifier = EnergyClassifier{}
	case BackendWebRTC:
		c, err := newWebRTCClassifier()
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "vad", "init webrtc", "webrtc backend unavailable; use vad.backend = \"energy\"", err)
		}
		classifier = c
	default:
		return nil, services.Wrap(services.ErrConfiguration, "vad", "select backend", fmt.Sprintf("unknown vad backend %q", backend), nil)
	}
	return &Detector{params: params, classifier: classifier}, nil
}

// NewDetectorWithClassifier returns a detector using c.
func NewDetectorWithClassifier(c Classifier, params Params) *Detector {
	return &Detector{params: params, classifier: c}
}

// Params returns the segmentation parameters.
func (d *Detector) Params() Params { return d.params }

// DetectSpeechSegments reads wavPath and returns its speech segments.
func (d *Detector) DetectSpeechSegments(ctx context.Context, wavPath string) ([]Segment, error) {
	samples, rate, err := ReadMono16(wavPath)
	if err != nil {
		return nil, err
	}
	frameLen := rate * FrameMs / 1000
	if frameLen <= 0 {
		return nil, services.Wrap(services.ErrValidation, "vad", "frame audio", fmt.Sprintf("unsupported sample rate %d", rate), nil)
	}
	probs := make([]float64, 0, len(samples)/frameLen)
	for start := 0; start+frameLen <= len(samples); start += frameLen {
		if start%(frameLen*1000) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p, err := d.classifier.Score(samples[start:start+frameLen], rate)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "vad", "score frame", "speech classifier failed", err)
		}
		probs = append(probs, p)
	}
	return Segments(probs, float64(FrameMs)/1000.0, d.params), nil
}

// ReadMono16 decodes a PCM WAV file into 16-bit samples of its first
// channel and returns the sample rate.
func ReadMono16(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrNotFound, "vad", "open wav", "cannot open audio for speech detection", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, services.Wrap(services.ErrValidation, "vad", "decode wav", path+" is not a PCM WAV file", nil)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, services.Wrap(services.ErrValidation, "vad", "decode wav", "cannot read PCM data", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, services.Wrap(services.ErrValidation, "vad", "decode wav", "missing format chunk", errors.New("nil buffer"))
	}
	channels := max(buf.Format.NumChannels, 1)
	shift := int(dec.BitDepth) - 16
	out := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		v := buf.Data[i]
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		out = append(out, int16(max(min(v, 32767), -32768)))
	}
	return out, buf.Format.SampleRate, nil
}

// Segments applies hysteresis to per-frame probabilities. frameSec is the
// duration of one frame.
func Segments(probs []float64, frameSec float64, p Params) []Segment {
	var (
		segments  []Segment
		triggered bool
		start     int
		tempEnd   = -1
	)
	minSilence := float64(p.MinSilenceMs) / 1000.0
	minSpeech := float64(p.MinSpeechMs) / 1000.0
	emit := func(from, to int) {
		if float64(to-from)*frameSec >= minSpeech {
			segments = append(segments, Segment{Start: float64(from) * frameSec, End: float64(to) * frameSec})
		}
	}

	for i, prob := range probs {
		if prob >= p.Threshold {
			tempEnd = -1
			if !triggered {
				triggered, start = true, i
			}
			continue
		}
		if !triggered || prob >= p.NegThreshold {
			continue
		}
		if tempEnd < 0 {
			tempEnd = i
		}
		if float64(i+1-tempEnd)*frameSec < minSilence {
			continue
		}
		emit(start, tempEnd)
		triggered, tempEnd = false, -1
	}
	if triggered {
		emit(start, len(probs))
	}
	return segments
}
