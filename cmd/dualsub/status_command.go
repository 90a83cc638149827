package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return ctx.describeClientError(err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:   running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Library:  %s\n", status.LibraryDir)
			fmt.Fprintf(out, "Database: %s\n", status.TaskDBPath)
			for _, dep := range status.Dependencies {
				state := "ok"
				if !dep.Available {
					state = "missing"
					if dep.Optional {
						state = "missing (optional)"
					}
				}
				fmt.Fprintf(out, "Tool:     %-8s %s\n", dep.Name, state)
			}
			if len(status.TaskCounts) == 0 {
				fmt.Fprintln(out, "No tasks recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				buildStatusRows(status.TaskCounts),
				1,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func buildStatusRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", counts[key])})
	}
	return rows
}
