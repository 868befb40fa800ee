package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/bloodbank/internal/config"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dbPath     string
	logPath    string
}

func main() {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:   "bloodbank",
		Short: "Blood bank stock ledger and request workflow server",
		Long: `bloodbank runs the blood bank API: donor registration, blood requests,
donation review and the per-blood-group stock ledger.

Settings come from an optional JSON file (--config), then BLOODBANK_*
environment variables, then command-line flags.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "JSON config file")
	pf.StringVarP(&flags.dbPath, "db", "d", "", "SQLite database path (default: bloodbank.sqlite3)")
	pf.StringVarP(&flags.logPath, "log", "l", "", "log file path (default: stdout/stderr only)")

	rootCmd.AddCommand(serveCmd(&flags))
	rootCmd.AddCommand(initCmd(&flags))
	rootCmd.AddCommand(stockCmd(&flags))
	rootCmd.AddCommand(availabilityCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for cmd: file, environment, then
// any flags set explicitly on the command line.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if cmd.Flags().Changed("log") {
		cfg.LogPath = flags.logPath
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("admin"); f != nil && f.Changed {
		cfg.AdminEmail = f.Value.String()
	}
	if f := cmd.Flags().Lookup("origin"); f != nil && f.Changed {
		origins, err := cmd.Flags().GetStringSlice("origin")
		if err != nil {
			return cfg, err
		}
		cfg.AllowedOrigins = origins
	}
	if f := cmd.Flags().Lookup("interval"); f != nil && f.Changed {
		d, err := cmd.Flags().GetDuration("interval")
		if err != nil {
			return cfg, err
		}
		cfg.AvailabilityInterval = config.Duration(d)
	}

	return cfg, cfg.Validate()
}
