package main

import (
	"github.com/spf13/cobra"

	"github.com/leozw/ssl-verifier/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, cleanup, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		server := api.NewServer(a.Processor, a.Reports, api.Options{
			Mode:      cfg.Server.Mode,
			JWTSecret: cfg.Server.JWTSecret,
			Metrics:   a.Collector.Handler(),
		}, a.Logger)

		return server.Run(ctx, ":"+cfg.Server.Port, a.Logger)
	},
}
