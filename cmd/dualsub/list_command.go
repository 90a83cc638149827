package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dualsub/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List download tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			items, err := client.ListTasks(cmd.Context(), statusFilters...)
			if err != nil {
				return ctx.describeClientError(err)
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"tasks": items})
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No tasks found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Size", "Created"},
				buildTaskRows(items),
				3, 4,
			))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func buildTaskRows(items []api.Task) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		size := item.TotalBytes
		if size == 0 {
			size = item.DownloadedBytes
		}
		rows = append(rows, []string{
			shortID(item.ID),
			firstNonEmpty(item.Title, item.URL),
			formatStatusLabel(item.Status),
			formatProgress(item.Progress, item.Status),
			formatBytes(size),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}
