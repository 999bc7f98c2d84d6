package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hackyplayer/internal/ipc"
)

func newMaintenanceCommand(ctx *commandContext) *cobra.Command {
	maintenanceCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Queue database upkeep",
	}

	maintenanceCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Reclaim stale jobs and purge old results and work files now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Maintenance()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reclaimed stale jobs: %d\n", resp.Reclaimed)
				fmt.Fprintf(out, "Purged finished jobs: %d\n", resp.Purged)
				fmt.Fprintf(out, "Pruned log files:     %d\n", resp.LogsPruned)
				fmt.Fprintf(out, "Pruned work dirs:     %d\n", resp.WorkDirsPruned)
				return nil
			})
		},
	})

	maintenanceCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Show queue database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", resp.TotalJobs)
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return nil
			})
		},
	})

	return maintenanceCmd
}
