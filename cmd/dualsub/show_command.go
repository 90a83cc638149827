package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dualsub/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show the full state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.GetTask(cmd.Context(), args[0])
			if err != nil {
				return ctx.describeClientError(err)
			}
			if task == nil {
				return fmt.Errorf("task %s not found", args[0])
			}
			if jsonOut {
				return writeJSON(cmd, task)
			}
			printTaskDetail(cmd.OutOrStdout(), *task)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func printTaskDetail(out io.Writer, task api.Task) {
	write := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-12s %s\n", label+":", value)
		}
	}

	write("Task", task.ID)
	write("URL", task.URL)
	write("Video", task.VideoID)
	write("Title", task.Title)
	write("Status", formatStatusLabel(task.Status))
	if task.Status == "downloading" {
		write("Progress", fmt.Sprintf("%d%%", task.Progress))
		write("Downloaded", formatBytes(task.DownloadedBytes))
		write("Speed", formatSpeed(task.DownloadSpeed))
		write("ETA", formatETA(task.ETASeconds))
	}
	write("Duration", formatVideoDuration(task.DurationSeconds))
	write("Size", formatBytes(task.TotalBytes))
	write("Message", task.StatusMessage)
	write("Error", task.ErrorMessage)
	if task.RetryCount > 0 {
		write("Retries", fmt.Sprintf("%d", task.RetryCount))
	}
	write("File", task.FilePath)
	write("Created", formatDisplayTime(task.CreatedAt))
	write("Started", formatDisplayTime(task.StartedAt))
	write("Finished", formatDisplayTime(task.CompletedAt))
}
