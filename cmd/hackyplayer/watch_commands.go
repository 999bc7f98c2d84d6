package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hackyplayer/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage watch folder monitors",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "start <name>",
		Short: "Start monitoring a configured watch folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WatchStart(args[0])
				if err != nil {
					return err
				}
				if resp.AlreadyRunning {
					fmt.Fprintf(cmd.OutOrStdout(), "Watch folder %s already running as %s\n", args[0], resp.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Watch folder %s started: %s\n", args[0], resp.ID)
				return nil
			})
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "stop <name>",
		Short: "Stop monitoring a watch folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WatchStop(args[0])
				if err != nil {
					return err
				}
				if len(resp.IDs) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Watch folder %s was not running\n", args[0])
					return nil
				}
				for _, id := range resp.IDs {
					fmt.Fprintf(cmd.OutOrStdout(), "Watch folder %s stopped: %s\n", args[0], id)
				}
				return nil
			})
		},
	})

	var asJSON bool
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured watch folders and their monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Watches()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Folders)
				}
				if len(resp.Folders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No watch folders configured")
					return nil
				}
				rows := make([][]string, 0, len(resp.Folders))
				for _, folder := range resp.Folders {
					rows = append(rows, []string{
						folder.Name,
						folder.Folder,
						folder.OutputDir,
						shortID(folder.ID),
						derefTime(folder.TimeStart),
						folder.Node,
						formatStatusLabel(folder.State),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Folder", "Output", "Job", "Started", "Node", "State"},
					rows, nil,
				))
				return nil
			})
		},
	}
	addJSONFlag(listCmd, &asJSON)
	watchCmd.AddCommand(listCmd)

	return watchCmd
}
