package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"videoforge/internal/api"
	"videoforge/internal/config"
	"videoforge/internal/queue"
	"videoforge/internal/textutil"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRecoverCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, err := ctx.daemonRunning()
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, map[string]any{
						"daemonRunning": running,
						"videos":        stats.Videos,
						"total":         stats.Total,
						"queueStats":    api.MergeQueueStats(stats.ByStatus),
					})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if running {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "Running", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
				}
				if stats.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]tableColumn{{Header: "Status"}, {Header: "Count", Align: alignRight}},
					buildQueueStatusRows(stats, colorize),
					fmt.Sprintf("%d task(s) across %d video(s)", stats.Total, stats.Videos),
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newQueueRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Requeue tasks left PROCESSING by a crashed daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, err := ctx.daemonRunning()
			if err != nil {
				return err
			}
			if running {
				return errors.New("daemon is running; it recovers interrupted tasks on start")
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				result, err := store.RequeueAllProcessing(cmd.Context(), queue.RecoveredMessage, cfg.Worker.MaxRetries)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d task(s)\n", result.Requeued)
				if result.Failed > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Failed %d task(s) with no retries left\n", result.Failed)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task, video and stored file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return ctx.withMedia(func(media *api.MediaService, _ *queue.Store) error {
				result, err := media.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d video(s), %d task(s), %d file(s)\n",
					result.Message, result.Videos, result.Tasks, result.Files)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the clear")
	return cmd
}

func buildQueueStatusRows(stats queue.Stats, colorize bool) [][]string {
	rows := make([][]string, 0, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		label := textutil.StatusLabel(string(status))
		if colorize {
			label = formatTaskStatus(status, true)
		}
		rows = append(rows, []string{label, strconv.Itoa(stats.Count(status))})
	}
	return rows
}
