package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/queue"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Import and inspect source videos",
	}
	videoCmd.AddCommand(newVideoAddCommand(ctx))
	videoCmd.AddCommand(newVideoListCommand(ctx))
	return videoCmd
}

func newVideoAddCommand(ctx *commandContext) *cobra.Command {
	var variants []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Copy a local file into the upload directory and optionally queue variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withMedia(func(media *api.MediaService, _ *queue.Store) error {
				video, err := media.ImportFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				tasks := []api.Task{}
				if len(variants) > 0 {
					tasks, err = media.CreateTasks(cmd.Context(), api.ProcessRequest{VideoID: video.ID, Variants: variants})
					if err != nil {
						return err
					}
				}
				if jsonOutput {
					video.Tasks = tasks
					return writeJSON(cmd, video)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Video %s added (%s, %s)\n", video.ID, video.OriginalName, humanize.Bytes(uint64(video.Size)))
				for _, task := range tasks {
					fmt.Fprintf(out, "Queued task %s (%s)\n", task.ID, task.Variant)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&variants, "variant", "v", nil, "Variant to queue, e.g. MP4-720p (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newVideoListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List source videos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMedia(func(media *api.MediaService, _ *queue.Store) error {
				videos, err := media.ListVideos(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, videos)
				}
				if len(videos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No videos")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]tableColumn{
						{Header: "ID"},
						{Header: "Name"},
						{Header: "Size", Align: alignRight},
						{Header: "Tasks", Align: alignRight},
						{Header: "Done", Align: alignRight},
						{Header: "Created"},
					},
					buildVideoRows(videos),
					"",
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func buildVideoRows(videos []api.Video) [][]string {
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		done := 0
		for _, task := range video.Tasks {
			if task.Status == string(queue.StatusCompleted) {
				done++
			}
		}
		rows = append(rows, []string{
			video.ID,
			video.OriginalName,
			humanize.Bytes(uint64(video.Size)),
			strconv.Itoa(len(video.Tasks)),
			strconv.Itoa(done),
			formatTimestamp(video.CreatedAt),
		})
	}
	return rows
}
