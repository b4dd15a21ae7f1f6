package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aouyang1/go-forecaster-studio/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecasting page, the JSON API and the metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.New(a.cfg, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address. Overrides the config.")
	return cmd
}
