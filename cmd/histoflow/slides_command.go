package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"histoflow/internal/ipc"
	"histoflow/internal/ledger"
)

func newSlidesCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var phases []string

	cmd := &cobra.Command{
		Use:   "slides",
		Short: "List slide passes for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, phase := range phases {
				if _, ok := ledger.ParsePhase(phase); !ok {
					return fmt.Errorf("unknown phase %q", phase)
				}
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SlideList(runID, phases)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp == nil || len(resp.Slides) == 0 {
					fmt.Fprintln(out, "No slide passes recorded")
					return nil
				}
				table := renderTable(
					[]string{"Slide", "Protocol", "Final", "Phase", "Quality", "Washes", "Reason", "Updated"},
					buildSlideRows(resp.Slides),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run to inspect (defaults to the latest run)")
	cmd.Flags().StringSliceVarP(&phases, "phase", "s", nil, "Filter by slide phase (repeatable)")
	return cmd
}
