package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title := fmt.Sprintf("urchind %s", status.Version)
			if shouldColorize(out) {
				title = ansiBlue + title + ansiReset
			}
			fmt.Fprintln(out, title)
			fmt.Fprintln(out, strings.Repeat("-", 40))

			fmt.Fprintf(out, "running:       %v\n", status.Running)
			fmt.Fprintf(out, "started:       %s\n", status.StartedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "model ready:   %v\n", status.ModelReady)
			if status.WeightsPath != "" {
				fmt.Fprintf(out, "weights:       %s\n", status.WeightsPath)
			}
			fmt.Fprintf(out, "camera:        active=%v index=%d\n", status.CameraActive, status.CameraIndex)
			fmt.Fprintf(out, "queued tasks:  %d\n", status.QueuedTasks)
			if status.RunningTaskID != "" {
				fmt.Fprintf(out, "running task:  %s\n", status.RunningTaskID)
			}

			if len(status.Preflight) > 0 {
				rows := make([][]string, 0, len(status.Preflight))
				for _, check := range status.Preflight {
					state := "ok"
					if !check.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{check.Name, state, check.Detail})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Check", "State", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			}
			return nil
		},
	}
}
