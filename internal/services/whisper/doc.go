// Package whisper runs the mlx_whisper command line transcriber.
//
// Each call writes plain text output into a scratch directory under the
// state directory, picks the produced .txt file, and collapses runaway
// repeated lines that the model emits on silence or noise. With debug
// enabled, every failed or suspicious run is appended to whisper_debug.jsonl
// including the full stdout and stderr.
package whisper
