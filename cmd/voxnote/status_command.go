package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var listPending bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending recordings, notes, and ledger totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.newRun(cmd)
			if err != nil {
				return err
			}
			st, err := r.workflow.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Pending audio files", strconv.Itoa(len(st.Pending))},
				{"Notes created", strconv.Itoa(st.Notes)},
				{"Collected", strconv.Itoa(st.Ledger.Collected)},
				{"Processed", strconv.Itoa(st.Ledger.Processed)},
				{"Saved transcriptions", strconv.Itoa(st.Ledger.Failed)},
			}
			fmt.Fprintln(out, renderTable([]string{"Item", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			if listPending {
				for _, path := range st.Pending {
					fmt.Fprintln(out, statusIndent+filepath.Base(path))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listPending, "list", false, "List pending file names")
	return cmd
}
