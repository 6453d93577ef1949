package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"erythu/portal/internal/lifecycle"

	"github.com/spf13/cobra"
)

var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Run the persistence unit of work once and exit",
	Long: `Open the configured persistence unit, begin a transaction, run the
unit body and commit. On failure the transaction is rolled back. The session
and factory are always closed.

The command prints a JSON result to stdout and exits non-zero on failure.`,
	RunE: runUnit,
}

func runUnit(cmd *cobra.Command, args []string) error {
	defer app.shutdownTelemetry()

	result, err := app.runner.RunUnit(context.Background())
	if err != nil {
		return fmt.Errorf("running persistence unit: %w", err)
	}

	printUnitResult(os.Stdout, result)

	if result.Status != lifecycle.StatusOK {
		return fmt.Errorf("persistence unit %s rolled back", result.Unit)
	}
	slog.Info("persistence unit completed", "unit", result.Unit)
	return nil
}

func printUnitResult(w io.Writer, result *lifecycle.UnitResult) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(w, `{"status":%q}`+"\n", result.Status)
	}
}
