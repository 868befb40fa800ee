package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/bloodbank/internal/db"
	"github.com/erazemk/bloodbank/internal/scheduler"
)

func availabilityCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "availability",
		Short: "Recompute donor availability once",
		Long: `Mark donors available again once the minimum interval since their last
donation has passed. The server runs the same job on a schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			database, err := db.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			res, err := scheduler.RecomputeAvailability(context.Background(), database, time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("Checked %d donor(s)\n", res.Checked)
			if res.Changed() == 0 {
				fmt.Println(color.New(color.FgBlue).Sprint("No changes"))
				return nil
			}
			fmt.Printf("  %s %d\n", color.New(color.FgGreen).Sprint("available:  "), res.BecameAvail)
			fmt.Printf("  %s %d\n", color.New(color.FgYellow).Sprint("unavailable:"), res.BecameUnavail)
			return nil
		},
	}
}
