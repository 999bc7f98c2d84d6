package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hackyplayer/internal/config"
	"hackyplayer/internal/ipc"
	"hackyplayer/internal/logstream"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newBuildCommand(ctx),
		newIngestCommand(ctx),
		newCancelCommand(ctx),
		newShowCommand(ctx),
		newLogsCommand(ctx),
	}
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var req ipc.BuildRequest
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Queue a talk build from a recorded stream",
		Long: "Queue a talk build. --video is resolved against paths.source_dir when relative. " +
			"Timecodes are HH:MM:SS:FF at the configured framerate. With --talk-id the talks " +
			"catalogue supplies the output filename and description.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.Video) == "" || strings.TrimSpace(req.StartTC) == "" || strings.TrimSpace(req.EndTC) == "" {
				return errors.New("--video, --start and --end are required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Build(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Build queued: %s\n", resp.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Video, "video", "", "Source recording (relative to paths.source_dir)")
	cmd.Flags().StringVar(&req.TalkID, "talk-id", "", "Talk id in the talks catalogue")
	cmd.Flags().StringVar(&req.Title, "title", "", "Talk title for the title card")
	cmd.Flags().StringVar(&req.Presenter, "presenter", "", "Presenter name for the title card")
	cmd.Flags().StringVar(&req.StartTC, "start", "", "In timecode HH:MM:SS:FF")
	cmd.Flags().StringVar(&req.EndTC, "end", "", "Out timecode HH:MM:SS:FF")
	return cmd
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Queue a raw recording for transcoding into the source directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			input, err = filepath.Abs(input)
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ingest(ipc.IngestRequest{Input: input, OutputDir: outputDir})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingest queued: %s\n", resp.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the transcoded file (default paths.source_dir)")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "cancel <job-id>...",
		Aliases: []string{"revoke"},
		Short:   "Cancel pending or running jobs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				var failed []string
				for _, id := range args {
					resp, err := client.Cancel(id)
					if err != nil {
						fmt.Fprintf(out, "Job %s: %v\n", id, err)
						failed = append(failed, id)
						continue
					}
					printCancelResult(out, resp.Job)
				}
				if len(failed) > 0 {
					return fmt.Errorf("cancel failed for %s", strings.Join(failed, ", "))
				}
				return nil
			})
		},
	}
}

func printCancelResult(out io.Writer, job ipc.JobView) {
	switch job.Status {
	case "revoked":
		fmt.Fprintf(out, "Job %s revoked\n", job.ID)
	case "running":
		fmt.Fprintf(out, "Job %s cancel requested; the worker will stop it shortly\n", job.ID)
	default:
		fmt.Fprintf(out, "Job %s already %s\n", job.ID, job.Status)
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "show <job-id>",
		Aliases: []string{"describe"},
		Short:   "Show the full record of a job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Describe(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}
				printJobDetail(cmd.OutOrStdout(), resp.Job)
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func printJobDetail(out io.Writer, job ipc.JobView) {
	rows := [][2]string{
		{"ID", job.ID},
		{"Kind", job.Kind},
		{"Status", formatStatusLabel(job.Status)},
		{"Phase", job.Phase},
		{"Label", job.Label},
		{"Progress", job.Progress},
		{"Node", job.Node},
		{"Created", job.CreatedAt},
		{"Started", derefTime(job.TimeStart)},
		{"Finished", derefTime(job.FinishedAt)},
		{"Result", job.Result},
		{"Error", job.ErrorMessage},
		{"Logs", job.LogDir},
	}
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		fmt.Fprintf(out, "%-10s %s\n", row[0]+":", row[1])
	}
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var file string
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Print the end of a job's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				runCtx := cmd.Context()
				if follow {
					var stop context.CancelFunc
					runCtx, stop = signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
					defer stop()
				}
				out := cmd.OutOrStdout()
				var available []string
				_, err := logstream.Stream(runCtx, client, logstream.Options{
					JobID:  args[0],
					File:   file,
					Lines:  lines,
					Follow: follow,
					OnOpen: func(path string, files []string) {
						fmt.Fprintf(out, "==> %s <==\n", path)
						available = files
					},
				}, func(line string) {
					fmt.Fprintln(out, line)
				})
				if err != nil {
					return err
				}
				if len(available) > 1 {
					fmt.Fprintf(out, "(available: %s)\n", strings.Join(available, ", "))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Log file name within the job log directory")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show (0 for the whole file)")
	cmd.Flags().BoolVarP(&follow, "follow", "F", false, "Keep printing new lines until interrupted")
	return cmd
}

func derefTime(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
