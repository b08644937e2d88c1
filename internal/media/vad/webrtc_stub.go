//go:build !(cgo && webrtcvad)

package vad

import "errors"

func newWebRTCClassifier() (Classifier, error) {
	return nil, errors.New("webrtcvad unavailable (build with -tags webrtcvad and cgo enabled)")
}
