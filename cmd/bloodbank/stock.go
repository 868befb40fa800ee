package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erazemk/bloodbank/internal/bank"
	"github.com/erazemk/bloodbank/internal/db"
)

// lowStockUnits is the level below which a group is highlighted.
const lowStockUnits = 5

func stockCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "Print units in stock per blood group",
		Args:  cobra.NoArgs,
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

			records, err := bank.New(database).StockRecords(context.Background())
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Printf("%-6s %6s  %-20s %s\n", "GROUP", "UNITS", "LAST UPDATED", "BY")

			total := 0
			for _, r := range records {
				total += r.Units
				units := fmt.Sprintf("%6d", r.Units)
				switch {
				case r.Units == 0:
					units = color.New(color.FgRed).Sprint(units)
				case r.Units < lowStockUnits:
					units = color.New(color.FgYellow).Sprint(units)
				default:
					units = color.New(color.FgGreen).Sprint(units)
				}

				updated := "-"
				if !r.LastUpdated.IsZero() {
					updated = r.LastUpdated.Local().Format("2006-01-02 15:04")
				}
				by := r.UpdatedBy
				if by == "" {
					by = "-"
				}
				fmt.Printf("%-6s %s  %-20s %s\n", r.BloodGroup, units, updated, by)
			}
			bold.Printf("%-6s %6d\n", "TOTAL", total)
			return nil
		},
	}
}
