package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a YouTube URL for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.CreateTask(cmd.Context(), args[0])
			if err != nil {
				return ctx.describeClientError(err)
			}
			if jsonOut {
				return writeJSON(cmd, task)
			}

			out := cmd.OutOrStdout()
			title := firstNonEmpty(task.Title, task.URL)
			switch task.Status {
			case "completed":
				fmt.Fprintf(out, "%s is already downloaded (task %s)\n", title, shortID(task.ID))
				if task.FilePath != "" {
					fmt.Fprintf(out, "  %s\n", task.FilePath)
				}
			case "failed":
				fmt.Fprintf(out, "Task %s failed: %s\n", shortID(task.ID), task.ErrorMessage)
			default:
				fmt.Fprintf(out, "Queued %s (task %s)\n", title, shortID(task.ID))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
