package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foryou-care/foryou/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Chat session maintenance commands",
	}

	cmd.AddCommand(newSessionsCloseInactiveCmd())
	cmd.AddCommand(newSessionsAnonymizeCmd())
	return cmd
}

func newSessionsCloseInactiveCmd() *cobra.Command {
	var (
		configPath string
		idleFor    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "close-inactive",
		Short: "Abandon sessions with no recent activity",
		Long:  "Runs one inactivity sweep immediately instead of waiting for the scheduled one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCloseInactive(cmd, configPath, idleFor)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	cmd.Flags().DurationVar(&idleFor, "idle-for", 0, "idle cutoff (overrides config, e.g. 10m)")
	return cmd
}

func runSessionsCloseInactive(cmd *cobra.Command, configPath string, idleFor time.Duration) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if idleFor == 0 {
		idleFor = time.Duration(cfg.Sessions.IdleTimeoutMinutes) * time.Minute
	}

	n, err := session.CloseInactive(gormDB, nil, idleFor)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Closed %d inactive session(s)\n", n)
	return nil
}

func newSessionsAnonymizeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "anonymize <uuid>",
		Short: "Strip user content from a closed session",
		Long:  "Removes message text and decision notes from a closed session while keeping risk levels and timings for review.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsAnonymize(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	return cmd
}

func runSessionsAnonymize(cmd *cobra.Command, configPath, uuid string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := session.Anonymize(gormDB, uuid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Anonymized session %s\n", uuid)
	return nil
}
