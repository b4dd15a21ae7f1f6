package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/spf13/cobra"
)

func (a *app) inspectCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a downloaded forecast CSV and print its rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("unable to open input, %w", err)
			}
			defer f.Close()

			rows, err := pipeline.DecodeCSV(f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(w, "no forecast rows")
				return nil
			}
			fmt.Fprintf(w, "%d rows from %s to %s\n\n", len(rows),
				rows[0].Timestamp.Format(time.DateTime), rows[len(rows)-1].Timestamp.Format(time.DateTime))

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "ds\tyhat\tyhat_lower\tyhat_upper\t")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t\n", r.Timestamp.Format(time.DateTime), r.Predicted, r.Lower, r.Upper)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "forecast CSV with a ds,yhat,yhat_lower,yhat_upper header")
	cmd.MarkFlagRequired("input")

	return cmd
}
