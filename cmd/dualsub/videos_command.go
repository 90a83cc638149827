package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dualsub/internal/api"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List completed downloads in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			videos, err := client.Videos(cmd.Context())
			if err != nil {
				return ctx.describeClientError(err)
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"videos": videos})
			}

			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "Library is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Duration", "Size", "Subtitles", "File"},
				buildVideoRows(videos),
				1, 2,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON output")
	return cmd
}

func buildVideoRows(videos []api.Video) [][]string {
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		subtitles := "no"
		if video.HasSubtitles {
			subtitles = "yes"
		}
		rows = append(rows, []string{
			firstNonEmpty(video.Title, video.URL),
			formatVideoDuration(video.DurationSeconds),
			formatBytes(video.SizeBytes),
			subtitles,
			video.FilePath,
		})
	}
	return rows
}
