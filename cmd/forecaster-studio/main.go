// Command forecaster-studio serves the forecasting web page and runs the same pipeline from the
// command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aouyang1/go-forecaster-studio/config"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	logLevel   string
	profileDir string
}

type app struct {
	flags    globalFlags
	cfg      *config.Config
	level    *slog.LevelVar
	profiler interface{ Stop() }
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{level: new(slog.LevelVar)}

	rootCmd := &cobra.Command{
		Use:           "forecaster-studio",
		Short:         "Upload a time series, forecast it and score the forecast",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.flags.configPath, "config", "c", "", "YAML config file, defaults to $"+config.EnvConfigPath)
	rootCmd.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error. Overrides the config.")
	rootCmd.PersistentFlags().StringVar(&a.flags.profileDir, "profile", "", "write a CPU profile into this directory")

	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.forecastCmd())
	rootCmd.AddCommand(a.metricsCmd())
	rootCmd.AddCommand(a.inspectCmd())
	return rootCmd
}

// setup loads the config and installs the default logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), a.flags.configPath)
	if err != nil {
		return fmt.Errorf("unable to load config, %w", err)
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.level.Set(lvl)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: a.level})))

	if a.flags.profileDir != "" {
		a.profiler = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(a.flags.profileDir),
			profile.Quiet,
			profile.NoShutdownHook,
		)
	}
	return nil
}

func (a *app) teardown() {
	if a.profiler != nil {
		a.profiler.Stop()
		a.profiler = nil
	}
}
