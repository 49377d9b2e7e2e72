package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/macdems/buildbot/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only buildset status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, store, err := openStore(configPath)
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Dashboard.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return dashboard.Start(ctx, dashboard.StartOpts{
				Store: store,
				Port:  port,
				Out:   cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}
