package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxnote/internal/planner"
	"voxnote/internal/workflow"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var sources []string
	var recursiveMode string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Copy new recordings from the source directories into input/",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := planner.ParseRecursiveMode(recursiveMode)
			if err != nil {
				return err
			}
			r, err := ctx.newRun(cmd)
			if err != nil {
				return err
			}
			summary, runErr := r.workflow.Collect(cmd.Context(), workflow.CollectOptions{
				Sources:       sources,
				RecursiveMode: mode,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Copied: %d, Skipped: %d\n", summary.Get("copied"), summary.Get("skipped"))
			return r.finish(cmd, runErr)
		},
	}

	cmd.Flags().StringArrayVar(&sources, "source", nil, "Directory to collect from (repeatable; replaces configured sources)")
	cmd.Flags().StringVar(&recursiveMode, "recursive-mode", string(planner.RecursiveAuto), "Recursive scan: auto, on, or off")
	return cmd
}

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.PrepareOptions

	cmd := &cobra.Command{
		Use:   "prepare-vad",
		Short: "Convert recordings to 16 kHz mono WAV with denoising for VAD",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.newRun(cmd)
			if err != nil {
				return err
			}
			summary, runErr := r.workflow.Prepare(cmd.Context(), opts)
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary, map[string]string{
				"prepared": "Prepared",
				"skipped":  "Skipped",
				"errors":   "Errors",
			}))
			return r.finish(cmd, runErr)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "Single file inside input/")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Rebuild even when a prepared file exists")
	return cmd
}

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.TrimOptions
	var threshold float64
	var minSilence, minSpeech, pad int

	cmd := &cobra.Command{
		Use:   "vad-trim",
		Short: "Cut silence from recordings using voice activity detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				opts.Threshold = &threshold
			}
			if flags.Changed("min-silence-duration-ms") {
				opts.MinSilenceMs = &minSilence
			}
			if flags.Changed("min-speech-duration-ms") {
				opts.MinSpeechMs = &minSpeech
			}
			if flags.Changed("speech-pad-ms") {
				opts.PadMs = &pad
			}
			r, err := ctx.newRun(cmd)
			if err != nil {
				return err
			}
			summary, runErr := r.workflow.Trim(cmd.Context(), opts)
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary, map[string]string{
				"processed":         "Trimmed",
				"skipped_cached":    "Skipped (cached)",
				"skipped_no_speech": "Skipped (no speech)",
				"errors":            "Errors",
			}))
			return r.finish(cmd, runErr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.File, "file", "", "Single file inside input/")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Detect speech and report without writing the cache")
	flags.BoolVar(&opts.Force, "force", false, "Trim even when a cached result exists")
	flags.Float64Var(&threshold, "threshold", 0, "Speech probability threshold (overrides vad.threshold)")
	flags.IntVar(&minSilence, "min-silence-duration-ms", 0, "Silence that ends a segment (overrides config)")
	flags.IntVar(&minSpeech, "min-speech-duration-ms", 0, "Shortest segment kept (overrides config)")
	flags.IntVar(&pad, "speech-pad-ms", 0, "Padding around each segment (overrides config)")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.ProcessOptions

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Transcribe, analyze, and file recordings as markdown notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.newRun(cmd)
			if err != nil {
				return err
			}
			summary, runErr := r.workflow.Process(cmd.Context(), opts)
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary, map[string]string{
				"processed": "Processed",
				"skipped":   "Skipped",
				"failed":    "Failed",
			}))
			return r.finish(cmd, runErr)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "Single file inside input/")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Process even when the content was already processed")
	cmd.Flags().BoolVar(&opts.ShowMetadata, "show-metadata", false, "Print recording metadata and embed it in the note")
	return cmd
}
