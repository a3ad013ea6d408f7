package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foryou-care/foryou/internal/models"
)

func newVolunteerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volunteer",
		Short: "Volunteer roster commands",
	}

	cmd.AddCommand(newVolunteerAddCmd())
	cmd.AddCommand(newVolunteerListCmd())
	return cmd
}

func newVolunteerAddCmd() *cobra.Command {
	var (
		configPath    string
		maxConcurrent int
		specialties   string
	)

	cmd := &cobra.Command{
		Use:   "add <display-name>",
		Short: "Register a volunteer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVolunteerAdd(cmd, configPath, args[0], maxConcurrent, specialties)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 1, "maximum simultaneous active escalations")
	cmd.Flags().StringVar(&specialties, "specialties", "", "comma-separated focus areas")
	return cmd
}

func runVolunteerAdd(cmd *cobra.Command, configPath, name string, maxConcurrent int, specialties string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	v := models.Volunteer{
		DisplayName:   name,
		Active:        true,
		MaxConcurrent: maxConcurrent,
		Specialties:   specialties,
	}
	if err := gormDB.Create(&v).Error; err != nil {
		return fmt.Errorf("create volunteer: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered volunteer %d (%s)\n", v.ID, v.DisplayName)
	return nil
}

func newVolunteerListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered volunteers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVolunteerList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "foryou.yaml", "path to ForYou config file")
	return cmd
}

func runVolunteerList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var vols []models.Volunteer
	if err := gormDB.Order("id ASC").Find(&vols).Error; err != nil {
		return fmt.Errorf("list volunteers: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(vols) == 0 {
		fmt.Fprintln(out, "No volunteers registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tMAX\tSPECIALTIES")
	for _, v := range vols {
		spec := v.Specialties
		if spec == "" {
			spec = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%s\n", v.ID, v.DisplayName, v.Active, v.MaxConcurrent, spec)
	}
	w.Flush()
	return nil
}
