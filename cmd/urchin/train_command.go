package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Manage detector training",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		weights    string
		epochs     int
		batchSize  int
		imageSize  int
		device     string
		name       string
		allowExist bool
	)
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Enqueue a training run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			params := map[string]any{}
			if weights != "" {
				params["initial_weights"] = weights
			}
			if epochs > 0 {
				params["epochs"] = epochs
			}
			if batchSize > 0 {
				params["batch_size"] = batchSize
			}
			if imageSize > 0 {
				params["image_size"] = imageSize
			}
			if device != "" {
				params["device"] = device
			}
			if name != "" {
				params["experiment_name"] = name
			}
			if allowExist {
				params["allow_exist"] = true
			}

			id, err := client.StartTraining(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "training enqueued: task %s\n", id)
			return nil
		},
	}
	startCmd.Flags().StringVar(&weights, "weights", "", "Initial weights file")
	startCmd.Flags().IntVar(&epochs, "epochs", 0, "Number of epochs")
	startCmd.Flags().IntVar(&batchSize, "batch", 0, "Batch size")
	startCmd.Flags().IntVar(&imageSize, "img", 0, "Training image size")
	startCmd.Flags().StringVar(&device, "device", "", "Training device (empty = auto)")
	startCmd.Flags().StringVar(&name, "name", "", "Experiment name")
	startCmd.Flags().BoolVar(&allowExist, "exist-ok", false, "Overwrite an existing experiment directory")
	trainCmd.AddCommand(startCmd)

	trainCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the in-flight training run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.StopTraining(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stop requested")
			return nil
		},
	})

	trainCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show training progress and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.TrainingStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "running:   %v\n", status.Running)
			if status.Running {
				fmt.Fprintf(out, "elapsed:   %.0fs\n", status.ElapsedSeconds)
			}
			if status.TotalEpochs > 0 {
				fmt.Fprintf(out, "epoch:     %d/%d (%.1f%%)\n",
					status.CurrentEpoch, status.TotalEpochs, status.Progress)
			}
			if status.LogPath != "" {
				fmt.Fprintf(out, "log:       %s\n", status.LogPath)
			}
			if len(status.Metrics) > 0 {
				keys := make([]string, 0, len(status.Metrics))
				for key := range status.Metrics {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Fprintln(out, "metrics:")
				for _, key := range keys {
					fmt.Fprintf(out, "  %s: %.4f\n", key, status.Metrics[key])
				}
			}
			if len(status.Artifacts) > 0 {
				keys := make([]string, 0, len(status.Artifacts))
				for key := range status.Artifacts {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Fprintln(out, "artifacts:")
				for _, key := range keys {
					fmt.Fprintf(out, "  %s: %s\n", key, status.Artifacts[key])
				}
			}
			return nil
		},
	})

	return trainCmd
}
