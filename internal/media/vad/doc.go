// Package vad finds speech in a mono PCM WAV file.
//
// A frame classifier turns each 30 ms frame into a speech probability and a
// hysteresis segmenter turns the probability track into speech segments:
// speech starts when a frame reaches Threshold and ends only after
// MinSilenceMs of frames below NegThreshold. Segments shorter than
// MinSpeechMs are dropped.
//
// The default classifier is energy based. Building with the cgo and
// webrtcvad tags adds the WebRTC classifier.
package vad
