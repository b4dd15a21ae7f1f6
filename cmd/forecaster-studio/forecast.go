package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/aouyang1/go-forecaster-studio/pipeline"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type forecastFlags struct {
	input   string
	horizon int
	output  string
	dataURI bool
	model   string
	vif     bool
}

func (a *app) forecastCmd() *cobra.Command {
	var f forecastFlags

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the periods after the last timestamp of a CSV upload",
		Long: `Fits the forecaster on the ds and y columns of the input CSV and writes the forecast
rows after the last valid timestamp as ds,yhat,yhat_lower,yhat_upper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.runForecast(cmd, f.input, f.horizon)
			if err != nil {
				return err
			}

			if err := writeOutput(f.output, cmd.OutOrStdout(), out.Export.CSV); err != nil {
				return err
			}
			if f.dataURI {
				fmt.Fprintln(cmd.OutOrStdout(), out.Export.DataURI)
			}
			if f.model != "" {
				if err := writeModel(f.model, out); err != nil {
					return err
				}
			}
			if f.vif {
				vif, err := out.Forecaster.FeatureVIF()
				if err != nil {
					return fmt.Errorf("unable to compute feature vif, %w", err)
				}
				return printVIF(cmd.OutOrStdout(), vif)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "CSV file with a ds and y column")
	cmd.Flags().IntVar(&f.horizon, "horizon", pipeline.DefaultMinHorizon, "number of future periods")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the forecast CSV here instead of stdout")
	cmd.Flags().BoolVar(&f.dataURI, "data-uri", false, "also print the forecast as a data URI")
	cmd.Flags().StringVar(&f.model, "model", "", "write the fit model as JSON to this file")
	cmd.Flags().BoolVar(&f.vif, "vif", false, "print the variance inflation factor of each series feature")
	cmd.MarkFlagRequired("input")

	return cmd
}

// runForecast reads the input file and runs the forecast pipeline with the loaded config
func (a *app) runForecast(cmd *cobra.Command, input string, horizon int) (*pipeline.Output, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("unable to read input, %w", err)
	}
	if horizon < a.cfg.MinHorizon || horizon > a.cfg.MaxHorizon {
		return nil, fmt.Errorf("horizon %d not in [%d, %d], %w", horizon, a.cfg.MinHorizon, a.cfg.MaxHorizon, pipeline.ErrHorizonOutOfRange)
	}

	out, err := pipeline.Run(cmd.Context(), pipeline.Input{Data: data, Horizon: horizon}, a.cfg.PipelineOptions())
	if err != nil {
		return nil, err
	}
	slog.Info("forecast complete",
		"dataset_id", out.DatasetID,
		"rows", len(out.Table.Rows),
		"cutoff", out.Cutoff,
		"freq", out.Freq,
		"forecast_rows", len(out.Forecast),
	)
	if eq, err := out.Forecaster.SeriesModelEq(); err == nil {
		slog.Debug("series model", "eq", eq)
	}
	return out, nil
}

func writeOutput(path string, stdout io.Writer, b []byte) error {
	if path == "" {
		_, err := stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("unable to write output, %w", err)
	}
	slog.Info("wrote forecast", "path", path, "bytes", len(b))
	return nil
}

func writeModel(path string, out *pipeline.Output) error {
	m, err := out.Forecaster.Model()
	if err != nil {
		return fmt.Errorf("unable to get model, %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode model, %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("unable to write model, %w", err)
	}
	return nil
}

func printVIF(w io.Writer, vif map[string]float64) error {
	labels := make([]string, 0, len(vif))
	for label := range vif {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "feature\tvif")
	for _, label := range labels {
		fmt.Fprintf(tw, "%s\t%.3f\n", label, vif[label])
	}
	return tw.Flush()
}
