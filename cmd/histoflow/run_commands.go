package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"histoflow/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start, abort, and inspect staining runs",
	}

	runCmd.AddCommand(newRunStartCommand(ctx))
	runCmd.AddCommand(newRunAbortCommand(ctx))
	runCmd.AddCommand(newRunDescribeCommand(ctx))

	return runCmd
}

func newRunStartCommand(ctx *commandContext) *cobra.Command {
	var (
		protocols    []string
		maxWashLoops int
		pickupSlot   int
		handlerSlot  int
		dropoffSlot  int
	)

	cmd := &cobra.Command{
		Use:   "start slideID...",
		Short: "Start a run for the given slides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slideIDs, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			req := ipc.RunStartRequest{SlideIDs: slideIDs, Protocols: protocols}
			flags := cmd.Flags()
			if flags.Changed("max-wash-loops") {
				req.MaxWashLoops = &maxWashLoops
			}
			if flags.Changed("pickup-slot") {
				req.PickupSlot = &pickupSlot
			}
			if flags.Changed("handler-slot") {
				req.HandlerSlot = &handlerSlot
			}
			if flags.Changed("dropoff-slot") {
				req.DropoffSlot = &dropoffSlot
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunStart(req)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp != nil && resp.Run.ID != "" {
					fmt.Fprintf(out, "Run %s started (%d slides, %d protocols)\n",
						resp.Run.ID, len(resp.Run.SlideIDs), len(resp.Run.Protocols))
					return nil
				}
				if resp != nil && strings.TrimSpace(resp.Message) != "" {
					fmt.Fprintln(out, resp.Message)
					return nil
				}
				fmt.Fprintln(out, "Run start requested")
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&protocols, "protocols", "p", nil, "Protocol plan override (repeatable, ordered)")
	cmd.Flags().IntVar(&maxWashLoops, "max-wash-loops", 0, "Wash retry bound override for this run")
	cmd.Flags().IntVar(&pickupSlot, "pickup-slot", 0, "Bench pickup slot override for this run")
	cmd.Flags().IntVar(&handlerSlot, "handler-slot", 0, "Bench handler slot override for this run")
	cmd.Flags().IntVar(&dropoffSlot, "dropoff-slot", 0, "Bench dropoff slot override for this run")
	return cmd
}

func newRunAbortCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Abort the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunAbort()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				switch {
				case resp == nil:
					fmt.Fprintln(out, "Abort requested")
				case resp.Aborted:
					fmt.Fprintf(out, "Run %s aborted\n", resp.RunID)
				case strings.TrimSpace(resp.Message) != "":
					fmt.Fprintln(out, resp.Message)
				default:
					fmt.Fprintln(out, "Abort requested")
				}
				return nil
			})
		},
	}
}

func newRunDescribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [runID]",
		Short: "Show one run with its slide passes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = strings.TrimSpace(args[0])
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunDescribe(runID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp == nil || resp.Run.ID == "" {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				for _, line := range describeRunSummary(resp.Run) {
					fmt.Fprintln(out, line)
				}
				if len(resp.Slides) == 0 {
					fmt.Fprintln(out, "No slide passes recorded")
					return nil
				}
				fmt.Fprintln(out)
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
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid slide id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
