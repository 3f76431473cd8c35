package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"videoforge/internal/deps"
	"videoforge/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check engine binaries, directories and optional services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cfg)
			results := preflight.RunAll(cmd.Context(), cfg)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}

			if err := deps.MissingRequired(statuses); err != nil {
				return err
			}
			for _, result := range results {
				if !result.Passed {
					return fmt.Errorf("%s check failed: %s", result.Name, result.Detail)
				}
			}
			return nil
		},
	}
}
