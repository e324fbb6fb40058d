// Command medcalc runs the medication calculators and the catalog search from a terminal.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/giygas/medcalc-api/calculator"
	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitError        = 1
	exitInvalidInput = 2
	exitClinical     = 3
)

func main() {
	// A missing .env is fine: flags and the environment cover everything
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode separates rejected input from clinically refused calculations
func exitCode(err error) int {
	switch calculator.KindOf(err) {
	case calculator.KindInvalidInput:
		return exitInvalidInput
	case calculator.KindDosingNotEstablished, calculator.KindInfeasibleDilution, calculator.KindDoseExceedsAvailable:
		return exitClinical
	}
	return exitError
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "medcalc",
		Short:        "Medication dosing, infusion and dilution calculator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("catalog", os.Getenv("CATALOG_PATH"), "catalog JSON file (default: bundled dataset)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(doseCmd())
	rootCmd.AddCommand(infusionCmd())
	rootCmd.AddCommand(dilutionCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(showCmd())

	return rootCmd
}

// loadCatalog reads the --catalog file, or the bundled dataset when none is given. File
// catalogs pass the same validation as the ones the service loads.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		return catalog.Load()
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	if err := validation.NewDataValidator().ValidateCatalog(cat); err != nil {
		return nil, fmt.Errorf("rejected catalog %s: %w", path, err)
	}
	return cat, nil
}

// field is one labelled line of human output
type field struct {
	label string
	value string
}

// printResult writes result as JSON with --json, otherwise the labelled fields as a table
func printResult(cmd *cobra.Command, result any, fields []field) error {
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	return printFields(out, fields)
}

func printFields(out io.Writer, fields []field) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", f.label, f.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// describeError adds the deliverable maximum to a dose exceeding a vial
func describeError(err error) error {
	var exceeds *calculator.DoseExceedsAvailableError
	if errors.As(err, &exceeds) {
		return fmt.Errorf("%w (max deliverable %s)", err, amountWithUnit(exceeds.MaxDeliverable, exceeds.Unit))
	}
	return err
}
