package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hackyplayer/internal/ipc"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List running and scheduled builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Tasks()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Tasks)
				}
				rows := buildTaskRows(resp.Tasks)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No builds queued")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "Source", "Title", "Presenter", "In", "Out", "Node", "State", "Progress"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newIngestsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingests",
		Short: "List running and scheduled ingests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ingests()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Ingests)
				}
				rows := buildIngestRows(resp.Ingests)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No ingests queued")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "Input", "Node", "State", "Progress"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func buildTaskRows(tasks []ipc.TaskView) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			shortID(task.ID),
			derefTime(task.TimeStart),
			task.Source,
			task.Title,
			task.Presenter,
			task.InTC,
			task.OutTC,
			task.Node,
			formatStatusLabel(task.State),
			task.Progress,
		})
	}
	return rows
}

func buildIngestRows(ingests []ipc.IngestView) [][]string {
	rows := make([][]string, 0, len(ingests))
	for _, ingest := range ingests {
		rows = append(rows, []string{
			shortID(ingest.ID),
			derefTime(ingest.TimeStart),
			ingest.Input,
			ingest.Node,
			formatStatusLabel(ingest.State),
			ingest.Progress,
		})
	}
	return rows
}

// shortID trims a job uuid to its first block for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
