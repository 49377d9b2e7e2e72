package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/macdems/buildbot/internal/reporters"
)

func newReportersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reporters",
		Short: "Buildset completion reporters",
	}

	cmd.AddCommand(newReportersRunCmd())
	return cmd
}

func newReportersRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch for completed buildsets and announce them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, store, err := openStore(configPath)
			if err != nil {
				return err
			}

			var reps []reporters.Reporter
			if cfg.Reporters.Slack.Token != "" {
				r, err := reporters.NewSlack(reporters.SlackOpts{
					Token:   cfg.Reporters.Slack.Token,
					Channel: cfg.Reporters.Slack.Channel,
				})
				if err != nil {
					return err
				}
				reps = append(reps, r)
			}
			if cfg.Reporters.Discord.Token != "" {
				r, err := reporters.NewDiscord(reporters.DiscordOpts{
					Token:   cfg.Reporters.Discord.Token,
					Channel: cfg.Reporters.Discord.Channel,
				})
				if err != nil {
					return err
				}
				reps = append(reps, r)
			}
			if cfg.Reporters.GitHub.Token != "" {
				r, err := reporters.NewGitHubStatus(gormDB, reporters.GitHubStatusOpts{
					Token: cfg.Reporters.GitHub.Token,
					Owner: cfg.Reporters.GitHub.Owner,
					Repo:  cfg.Reporters.GitHub.Repo,
				})
				if err != nil {
					return err
				}
				reps = append(reps, r)
			}
			if len(reps) == 0 {
				return fmt.Errorf("no reporters configured")
			}

			interval, err := time.ParseDuration(cfg.Reporters.PollInterval)
			if err != nil {
				return fmt.Errorf("bad poll_interval %q: %w", cfg.Reporters.PollInterval, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return reporters.NewWatcher(store, reps, interval).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "master.yaml", "path to master config file")
	return cmd
}
