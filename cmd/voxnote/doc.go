// Package main hosts the voxnote CLI.
//
// Each pipeline stage is a Cobra subcommand that loads the configuration,
// builds a workflow, and prints its events as status lines. The stages
// themselves live in internal/workflow; this package only parses flags and
// renders output.
package main
