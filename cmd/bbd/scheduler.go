package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/macdems/buildbot/internal/scheduler"
)

func newSchedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Periodic buildset schedulers",
	}

	cmd.AddCommand(newSchedulerRunCmd())
	return cmd
}

func newSchedulerRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run all configured schedulers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, store, err := openStore(configPath)
			if err != nil {
				return err
			}
			if len(cfg.Schedulers) == 0 {
				return fmt.Errorf("no schedulers configured")
			}

			s, err := scheduler.New(gormDB, store, cfg.Schedulers)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	return cmd
}
