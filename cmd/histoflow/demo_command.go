package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"histoflow/internal/api"
	"histoflow/internal/config"
	"histoflow/internal/events"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/workflow"
)

// newDemoCommand runs one complete simulated run in-process with the event
// trace on stdout. No daemon and no config file are involved; the ledger
// lives in a throwaway directory that is removed afterwards.
func newDemoCommand() *cobra.Command {
	var (
		slides       []int64
		protocols    []string
		maxWashLoops int
		seed         int64
		stepDelay    int
	)

	cmd := &cobra.Command{
		Use:         "demo",
		Short:       "Run a simulated staining run in-process and print the event trace",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := os.MkdirTemp("", "histoflow-demo-")
			if err != nil {
				return fmt.Errorf("create demo workspace: %w", err)
			}
			defer os.RemoveAll(workDir)

			cfg := config.Default()
			cfg.Paths.DataDir = filepath.Join(workDir, "data")
			cfg.Paths.LogDir = filepath.Join(workDir, "logs")
			cfg.Bench.MaxWashLoops = maxWashLoops
			if len(protocols) > 0 {
				cfg.Bench.Protocols = protocols
			}
			cfg.Simulation.Seed = seed
			cfg.Simulation.StepDelayMS = stepDelay
			cfg.Events.LogMirror = false

			store, err := ledger.Open(&cfg)
			if err != nil {
				return fmt.Errorf("open demo ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Histoflow workflow demo")
			fmt.Fprintf(out, "  Slides:         %s\n", formatSlideIDs(slides))
			fmt.Fprintf(out, "  Protocols:      %s\n", strings.Join(cfg.Bench.Protocols, ", "))
			fmt.Fprintf(out, "  Max wash loops: %d\n", cfg.Bench.MaxWashLoops)
			fmt.Fprintln(out)

			mgr := workflow.NewManagerWithOptions(&cfg, store, logging.NewNop(), nil,
				workflow.WithEventSinks(events.NewConsoleSink(out)),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			run, err := mgr.StartRun(ctx, slides, nil)
			if err != nil {
				return err
			}

			// An interrupt aborts the run; Wait then returns once the
			// in-flight slide has been recorded.
			watcherDone := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_, _ = mgr.AbortRun(context.WithoutCancel(ctx))
				case <-watcherDone:
				}
			}()
			mgr.Wait()
			close(watcherDone)

			cleanupCtx := context.WithoutCancel(ctx)
			slideRecords, err := api.NewLedgerService(store).Slides(cleanupCtx, run.ID)
			if err != nil {
				return fmt.Errorf("read demo slides: %w", err)
			}
			if len(slideRecords) > 0 {
				fmt.Fprintln(out)
				table := renderTable(
					[]string{"Slide", "Protocol", "Final", "Phase", "Quality", "Washes", "Reason", "Updated"},
					buildSlideRows(slideRecords),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
			}

			status := mgr.Status(cleanupCtx)
			if line := formatRunResultLine(api.FromRunResult(status.LastResult)); line != "" {
				fmt.Fprintln(out, line)
			}

			finished, err := store.GetRun(cleanupCtx, run.ID)
			if err != nil {
				return fmt.Errorf("read demo run: %w", err)
			}
			switch {
			case finished == nil:
				return errors.New("demo run missing from ledger")
			case finished.Status == ledger.RunFailed:
				return fmt.Errorf("demo run failed: %s", finished.ErrorMessage)
			case finished.Status == ledger.RunAborted:
				fmt.Fprintln(out, "Demo aborted")
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&slides, "slides", []int64{1, 2, 3, 4}, "Slide IDs to process")
	cmd.Flags().StringSliceVarP(&protocols, "protocols", "p", nil, "Protocol plan override (repeatable, ordered)")
	cmd.Flags().IntVar(&maxWashLoops, "max-wash-loops", 2, "Maximum wash loops per slide")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for the simulated bench (0 derives one from the clock)")
	cmd.Flags().IntVar(&stepDelay, "step-delay", 50, "Simulated device step duration in milliseconds")
	return cmd
}
