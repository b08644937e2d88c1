// Package ffmpeg wraps the ffmpeg invocations of the pipeline: preparing a
// denoised mono 16 kHz WAV for speech detection, decoding to plain WAV, and
// cutting a recording down to its speech intervals.
//
// Every command writes to a temporary file beside its target and renames it
// into place only after a non-empty check, so a cache path either holds a
// complete file or does not exist.
package ffmpeg
