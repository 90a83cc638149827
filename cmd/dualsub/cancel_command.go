package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a pending or downloading task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.CancelTask(cmd.Context(), args[0])
			if err != nil {
				return ctx.describeClientError(err)
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if result.Cancelled {
				fmt.Fprintf(out, "Task %s cancelled\n", shortID(result.Task.ID))
			} else {
				fmt.Fprintf(out, "Task %s is %s and cannot be cancelled\n",
					shortID(result.Task.ID), formatStatusLabel(result.Task.Status))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}
