package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var folders []string
	var ratio float64

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the train/validation dataset from annotated folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.BuildDataset(cmd.Context(), folders, ratio)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "built dataset: %d train / %d val (of %d pairs)\n",
				result.TrainCount, result.ValCount, result.Total)
			fmt.Fprintf(out, "descriptor: %s\n", result.DescriptorPath)
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Source folders (default: the default folder)")
	cmd.Flags().Float64Var(&ratio, "train-ratio", 0, "Training split ratio in (0,1); 0 uses the configured default")
	return cmd
}
