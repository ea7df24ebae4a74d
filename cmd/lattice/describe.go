package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <group>",
	Short: "Describe the machines and messages of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := cli.NewEngine(engineOptions(cmd), logging.NewNop())
		if err != nil {
			return err
		}
		def, err := engine.Definition(args[0])
		if err != nil {
			return err
		}
		chart, err := engine.Chart(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetBool("raw")
		return cli.Describe(cmd.OutOrStdout(), def, chart, raw)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("raw", false, "Print Markdown instead of rendering it")
}
