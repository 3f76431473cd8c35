package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/queue"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and delete encode tasks",
	}
	taskCmd.AddCommand(newTaskListCommand(ctx))
	taskCmd.AddCommand(newTaskShowCommand(ctx))
	taskCmd.AddCommand(newTaskDeleteCommand(ctx))
	return taskCmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				tasks, err := api.NewQueueService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, tasks)
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]tableColumn{
						{Header: "ID"},
						{Header: "Video"},
						{Header: "Variant"},
						{Header: "Status"},
						{Header: "Progress", Align: alignRight},
						{Header: "Bitrate", Align: alignRight},
						{Header: "Retries", Align: alignRight},
					},
					buildTaskRows(tasks, colorize),
					fmt.Sprintf("%d task(s)", len(tasks)),
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (queued, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				task, err := api.NewQueueService(store).Describe(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if task == nil {
					return fmt.Errorf("task %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, task)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetails(taskDetails(*task)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTaskDeleteCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "delete <id> [id...]",
		Short: "Delete tasks and their encoded outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withMedia(func(media *api.MediaService, _ *queue.Store) error {
				result, err := api.RemoveTasksByID(cmd.Context(), media, args)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				printRemoveResult(cmd.OutOrStdout(), result)
				if result.RemovedCount == 0 {
					return errors.New("no tasks deleted")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func buildTaskRows(tasks []api.Task, colorize bool) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			task.ID,
			task.VideoID,
			task.Variant,
			formatTaskStatus(queue.Status(task.Status), colorize),
			formatProgress(task.Progress),
			dashIfEmpty(task.CurrentBitrate),
			strconv.Itoa(task.Retries),
		})
	}
	return rows
}

func taskDetails(task api.Task) [][2]string {
	pairs := [][2]string{
		{"ID", task.ID},
		{"Video", task.VideoID},
		{"Variant", task.Variant},
		{"Status", formatTaskStatus(queue.Status(task.Status), false)},
		{"Progress", formatProgress(task.Progress)},
		{"Bitrate", task.CurrentBitrate},
		{"Retries", strconv.Itoa(task.Retries)},
		{"Error", task.Error},
		{"Output", task.OutputPath},
		{"Created", formatTimestamp(task.CreatedAt)},
		{"Started", formatTimestamp(task.StartedAt)},
		{"Finished", formatTimestamp(task.FinishedAt)},
		{"Download", task.DownloadURL},
	}
	if task.OutputSize > 0 {
		pairs = append(pairs, [2]string{"Output size", humanize.Bytes(uint64(task.OutputSize))})
	}
	return pairs
}

func printRemoveResult(out io.Writer, result api.RemoveTasksResult) {
	for _, task := range result.Tasks {
		switch task.Outcome {
		case api.RemoveTaskNotFound:
			fmt.Fprintf(out, "Task %s not found\n", task.ID)
		case api.RemoveTaskRemoved:
			fmt.Fprintf(out, "Task %s deleted\n", task.ID)
		}
	}
}

func formatProgress(progress *int) string {
	if progress == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *progress)
}

// formatTimestamp renders an API timestamp as local time plus a relative hint.
func formatTimestamp(value string) string {
	if value == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s (%s)", parsed.Local().Format("2006-01-02 15:04"), humanize.Time(parsed))
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
