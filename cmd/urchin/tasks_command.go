package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"urchin/internal/api"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect background tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(ctx, cmd)
		},
	}

	tasksCmd.PersistentFlags().Bool("history", false, "include journaled tasks from previous daemon runs")

	tasksCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(ctx, cmd)
		},
	})

	tasksCmd.AddCommand(&cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			task, err := client.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTask(cmd, task)
			return nil
		},
	})

	tasksCmd.AddCommand(&cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a queued or running task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.CancelTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancellation requested for %s\n", args[0])
			return nil
		},
	})

	return tasksCmd
}

func listTasks(ctx *commandContext, cmd *cobra.Command) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	history, _ := cmd.Flags().GetBool("history")
	views, err := client.Tasks(cmd.Context(), history)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
		return nil
	}

	rows := make([][]string, 0, len(views))
	for _, task := range views {
		rows = append(rows, []string{
			task.ID,
			task.Type,
			task.Status,
			fmt.Sprintf("%.0f%%", task.Progress),
			task.Message,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "Type", "Status", "Progress", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
	return nil
}

func printTask(cmd *cobra.Command, task *api.TaskView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:        %s\n", task.ID)
	fmt.Fprintf(out, "type:      %s\n", task.Type)
	fmt.Fprintf(out, "status:    %s\n", task.Status)
	fmt.Fprintf(out, "progress:  %.0f%%\n", task.Progress)
	if task.Message != "" {
		fmt.Fprintf(out, "message:   %s\n", task.Message)
	}
	if task.StartedAt != nil {
		fmt.Fprintf(out, "started:   %s\n", task.StartedAt.Format(time.RFC3339))
	}
	if task.FinishedAt != nil {
		fmt.Fprintf(out, "finished:  %s\n", task.FinishedAt.Format(time.RFC3339))
	}
	if len(task.Result) > 0 {
		keys := make([]string, 0, len(task.Result))
		for key := range task.Result {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "result:")
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %v\n", key, task.Result[key])
		}
	}
}
