package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"histoflow/internal/ipc"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check ledger database health (schema, integrity, tables)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
				if len(resp.TablesPresent) > 0 {
					tables := append([]string(nil), resp.TablesPresent...)
					sort.Strings(tables)
					fmt.Fprintf(out, "Tables: %s\n", strings.Join(tables, ", "))
				}
				if len(resp.MissingTables) > 0 {
					missing := append([]string(nil), resp.MissingTables...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing tables: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Total events: %d\n", resp.TotalEvents)
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return nil
			})
		},
	}
}
