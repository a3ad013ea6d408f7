package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/foryou-care/foryou/internal/api"
	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/events/discord"
	"github.com/foryou-care/foryou/internal/events/slack"
	"github.com/foryou-care/foryou/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ForYou API server",
		Long:  "Launches the JSON API, volunteer notifiers, and the inactivity sweep. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	em := events.NewEmitter()

	if cfg.Notifiers.Slack.Token != "" {
		n := slack.New(slack.Opts{Token: cfg.Notifiers.Slack.Token, Channel: cfg.Notifiers.Slack.Channel})
		em.Subscribe(n.Handle)
		fmt.Fprintf(out, "Slack alerts enabled for channel %s\n", cfg.Notifiers.Slack.Channel)
	}
	if cfg.Notifiers.Discord.Token != "" {
		n, err := discord.New(discord.Opts{Token: cfg.Notifiers.Discord.Token, ChannelID: cfg.Notifiers.Discord.ChannelID})
		if err != nil {
			return err
		}
		em.Subscribe(n.Handle)
		fmt.Fprintf(out, "Discord alerts enabled for channel %s\n", cfg.Notifiers.Discord.ChannelID)
	}

	sweep, err := scheduler.Start(scheduler.Opts{
		DB:       gormDB,
		Events:   em,
		Schedule: cfg.Sessions.SweepSchedule,
		IdleFor:  time.Duration(cfg.Sessions.IdleTimeoutMinutes) * time.Minute,
		Out:      out,
	})
	if err != nil {
		return err
	}
	defer sweep.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if port == 0 {
		port = cfg.Server.Port
	}
	fmt.Fprintf(out, "ForYou API listening on port %d\n", port)

	return api.Start(ctx, api.StartOpts{
		DB:     gormDB,
		Events: em,
		Port:   port,
	})
}
