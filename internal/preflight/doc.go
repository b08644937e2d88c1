// Package preflight provides the readiness checks behind `voxnote doctor`:
// external binaries, the Ollama endpoint and model, the denoise model file,
// and access to the input, output, archive, and state directories.
//
// Checks never fail hard; each returns a Result the CLI renders as a table.
package preflight
