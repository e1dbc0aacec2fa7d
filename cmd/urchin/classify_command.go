package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify an image as male, female, or unknown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			verdict, err := client.Classify(cmd.Context(), args[0], confidence)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gender:     %s\n", verdict.Gender)
			fmt.Fprintf(out, "confidence: %.2f\n", verdict.Confidence)
			if verdict.Message != "" {
				fmt.Fprintf(out, "note:       %s\n", verdict.Message)
			}
			fmt.Fprintf(out, "counts:     male=%d female=%d madreporite=%d anus=%d\n",
				verdict.Counts["male"], verdict.Counts["female"],
				verdict.Counts["madreporite"], verdict.Counts["anus"])

			if len(verdict.Detections) > 0 {
				rows := make([][]string, 0, len(verdict.Detections))
				for _, det := range verdict.Detections {
					rows = append(rows, []string{
						det.ClassName,
						fmt.Sprintf("%.2f", det.Confidence),
						fmt.Sprintf("(%d,%d)-(%d,%d)", det.Box[0], det.Box[1], det.Box[2], det.Box[3]),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Class", "Confidence", "Box"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&confidence, "conf", 0, "Confidence threshold in (0,1]; 0 uses the configured default")
	return cmd
}
