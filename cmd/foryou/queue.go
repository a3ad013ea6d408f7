package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foryou-care/foryou/internal/escalation"
	"github.com/foryou-care/foryou/internal/volunteer"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Volunteer escalation queue commands",
	}

	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueClaimCmd())
	return cmd
}

func newQueueListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List waiting escalation requests",
		Long:  "Shows the escalation queue in pickup order: critical first, then high, then normal, oldest first within each priority.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	return cmd
}

func runQueueList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	reqs, err := escalation.ListWaiting(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(reqs) == 0 {
		fmt.Fprintln(out, "No one is waiting.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tSESSION\tWAITING")
	for _, r := range reqs {
		pri := string(r.Priority)
		if r.Emergency {
			pri += " (emergency)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n",
			r.ID, pri, r.SessionID, time.Since(r.CreatedAt).Round(time.Second))
	}
	w.Flush()
	return nil
}

func newQueueClaimCmd() *cobra.Command {
	var (
		configPath  string
		volunteerID uint
	)

	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim a waiting escalation request",
		Long:  "Claims the request for a volunteer and hands the session off. Fails if another volunteer got there first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueClaim(cmd, configPath, args[0], volunteerID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	cmd.Flags().UintVar(&volunteerID, "volunteer", 0, "claiming volunteer ID (required)")
	cmd.MarkFlagRequired("volunteer")
	return cmd
}

func runQueueClaim(cmd *cobra.Command, configPath, idArg string, volunteerID uint) error {
	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid request ID %q", idArg)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	req, err := escalation.Claim(gormDB, nil, volunteer.DBDirectory{}, uint(id), volunteerID)
	if errors.Is(err, escalation.ErrClaimConflict) {
		return fmt.Errorf("request %d was already taken by another volunteer", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Claimed request %d (session %d, priority %s)\n", req.ID, req.SessionID, req.Priority)
	return nil
}
