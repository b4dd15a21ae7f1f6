package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecaster-studio/diagnostics"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/spf13/cobra"
)

const cvHeadRows = 5

func (a *app) metricsCmd() *cobra.Command {
	var (
		input   string
		horizon int
		initial string
		period  string
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Cross validate the forecaster on a CSV upload and print the performance metrics",
		Long: `Refits the forecaster at every cutoff between initial and the end of the data, spaced by
period, and scores the predictions of the following horizon periods.

Durations read like "365 days", "12 hours" or "90m".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.runForecast(cmd, input, horizon)
			if err != nil {
				return err
			}

			res, err := pipeline.RunMetrics(cmd.Context(), out,
				pipeline.MetricsInput{Initial: initial, Period: period, Horizon: horizon},
				pipeline.MetricsOptions{
					Parallelism:   a.cfg.CVParallelism,
					RollingWindow: a.cfg.CVRollingWindow,
					Progress: func(done, total int) {
						slog.Info("cross validation", "done", done, "total", total)
					},
				},
			)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "horizon %s, initial %s, period %s, %d rows\n\n", res.Horizon, res.Initial, res.Period, len(res.Rows))
			if err := printCVHead(w, res.Rows); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return printMetrics(w, res.Metrics)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file with a ds and y column")
	cmd.Flags().IntVar(&horizon, "horizon", pipeline.DefaultMinHorizon, "number of periods scored after each cutoff")
	cmd.Flags().StringVar(&initial, "initial", "", "training span before the first cutoff, defaults to three horizons")
	cmd.Flags().StringVar(&period, "period", "", "spacing between cutoffs, defaults to half a horizon")
	cmd.MarkFlagRequired("input")

	return cmd
}

func printCVHead(w io.Writer, rows []diagnostics.CVRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ds\tcutoff\ty\tyhat\tyhat_lower\tyhat_upper\t")
	for _, r := range rows[:min(cvHeadRows, len(rows))] {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			r.Timestamp.Format(time.DateTime), r.Cutoff.Format(time.DateTime),
			r.Actual, r.Predicted, r.Lower, r.Upper)
	}
	return tw.Flush()
}

func printMetrics(w io.Writer, metrics []diagnostics.MetricRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "horizon\tmse\trmse\tmae\tmape\tmdape\tsmape\tcoverage\t")
	for _, m := range metrics {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			m.Horizon, m.MSE, m.RMSE, m.MAE, m.MAPE, m.MdAPE, m.SMAPE, m.Coverage)
	}
	return tw.Flush()
}
