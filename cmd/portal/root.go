package main

import (
	"fmt"
	"log/slog"
	"os"

	"erythu/portal/internal/config"
	"erythu/portal/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	unitName string

	// cfg is populated by PersistentPreRunE and shared with all subcommands.
	cfg *config.Config

	// app holds all wired dependencies; populated by PersistentPreRunE.
	app *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "e-rythu portal — welcome API and persistence startup unit",
	Long: `The e-rythu portal serves the welcome resource over HTTP and runs
its persistence unit of work (begin, commit, rollback on failure) at startup.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&unitName, "unit", "", "persistence unit to open (default: persistence.unit from config)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger(logLevel)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// --log-level flag takes precedence over value in config file.
		if cmd.Flags().Changed("log-level") {
			cfg.Telemetry.LogLevel = logLevel
		} else if cfg.Telemetry.LogLevel != "" {
			initLogger(cfg.Telemetry.LogLevel)
		}

		app, err = buildAppContext(cfg, unitName)
		if err != nil {
			return fmt.Errorf("building app context: %w", err)
		}

		return nil
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(unitCmd)
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: telemetry.ParseLevel(level)})
	slog.SetDefault(slog.New(telemetry.NewTraceHandler(handler)))
}
