package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [group...]",
	Short: "Compile groups and report problems",
	Long: `Compiles every group (or the named ones) and reports construction errors.
States no message sequence can reach are reported as warnings; --strict makes them fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		engine, err := cli.NewEngine(engineOptions(cmd), logging.NewNop())
		if err != nil {
			return err
		}

		names := args
		if len(names) == 0 {
			if names, err = engine.Loader().ListGroups(); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		warnings := 0
		for _, name := range names {
			chart, err := engine.Chart(name)
			if err != nil {
				fmt.Fprintf(out, "✗ %s\n%v\n", name, err)
				errs = append(errs, err)
				continue
			}
			findings := validator.Unreachable(chart)
			warnings += len(findings)
			fmt.Fprintf(out, "✓ %s (%d machines, %d kinds)\n", name, len(chart.AllMachines()), len(chart.Kinds()))
			for _, f := range findings {
				fmt.Fprintf(out, "  warning: %s\n", f)
			}
		}

		if len(errs) > 0 {
			return fmt.Errorf("validation failed: %w", errors.Join(errs...))
		}
		if strict && warnings > 0 {
			return fmt.Errorf("validation failed: %d unreachable states", warnings)
		}
		fmt.Fprintln(out, "All groups are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat unreachable states as errors")
}
