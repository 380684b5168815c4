package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"histoflow/internal/ipc"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var tail int
	var after int64
	var follow bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the run event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tail < 0 {
				tail = 0
			}
			if after < 0 {
				after = -1
			}

			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()

				resp, err := client.EventTail(ipc.EventTailRequest{
					RunID: runID,
					After: after,
					Limit: tail,
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() && !follow {
					return writeJSON(cmd, resp)
				}
				printed := false
				for _, evt := range resp.Events {
					fmt.Fprintln(out, formatEventLine(evt))
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No events recorded")
					}
					return nil
				}

				cursor := resp.Next
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				cmdCtx := cmd.Context()
				for {
					select {
					case <-cmdCtx.Done():
						return nil
					case <-ticker.C:
					}
					page, err := client.EventTail(ipc.EventTailRequest{
						RunID: runID,
						After: cursor,
						Limit: 200,
					})
					if err != nil {
						return err
					}
					for _, evt := range page.Events {
						fmt.Fprintln(out, formatEventLine(evt))
					}
					cursor = page.Next
				}
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run to inspect (defaults to the latest run)")
	cmd.Flags().IntVarP(&tail, "tail", "n", 20, "Number of recent events to show (0 replays from the beginning when following)")
	cmd.Flags().Int64Var(&after, "after", -1, "Replay events with sequence numbers greater than this cursor (-1 tails the newest)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll for new events until interrupted")
	return cmd
}
