package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voxnote/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, the Ollama server, and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, res := range results {
				rows = append(rows, []string{res.Name, doctorStatus(res, colorize), res.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Info"}, rows, nil))

			if preflight.Failed(results) {
				return errors.New("doctor: one or more required checks failed")
			}
			return nil
		},
	}
}

func doctorStatus(res preflight.Result, colorize bool) string {
	label, color := "OK", ansiGreen
	switch {
	case !res.Passed && res.Optional:
		label, color = "WARN", ansiYellow
	case !res.Passed:
		label, color = "FAIL", ansiRed
	}
	if colorize {
		return color + label + ansiReset
	}
	return label
}
