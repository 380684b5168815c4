package main

import (
	"github.com/spf13/cobra"

	"histoflow/internal/daemonrun"
)

// newDaemonRunCommand hosts the daemon process itself. `histoflow start`
// launches it detached; it is hidden from help output because users
// normally go through start/stop/restart.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	cmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Run the histoflow daemon in the foreground",
		Hidden:      true,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.diagnostic = &diagnostic
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   ctx.resolvedLogLevel(cfg),
				Diagnostic: ctx.diagnosticMode(),
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with DEBUG logging")
	return cmd
}
