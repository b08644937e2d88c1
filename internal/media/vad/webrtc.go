//go:build cgo && webrtcvad

package vad

import (
	"encoding/binary"

	"github.com/visvasity/webrtcvad"
)

// Aggressive mode; 0 is the most permissive.
const webrtcMode = 3

type webrtcClassifier struct {
	vad *webrtcvad.VAD
	buf []byte
}

func newWebRTCClassifier() (Classifier, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(webrtcMode); err != nil {
		return nil, err
	}
	return &webrtcClassifier{vad: v}, nil
}

func (w *webrtcClassifier) Score(frame []int16, sampleRate int) (float64, error) {
	if cap(w.buf) < len(frame)*2 {
		w.buf = make([]byte, len(frame)*2)
	}
	buf := w.buf[:len(frame)*2]
	for i, s := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	speech, err := w.vad.Process(sampleRate, buf)
	if err != nil {
		return 0, err
	}
	if speech {
		return 1, nil
	}
	return 0, nil
}
