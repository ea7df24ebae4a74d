package main

import (
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice runs groups of hierarchical, concurrent state machines",
	Long: `Lattice compiles machine groups declared as documents (Markdown frontmatter, YAML or JSON)
and drives them with messages, interactively, over HTTP or as MCP tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the group definitions")
	rootCmd.PersistentFlags().String("loader", cli.LoaderLoam, "Definition source: loam, file or builtin")
	rootCmd.PersistentFlags().Bool("debug", false, "Log engine activity to stderr")
}

// engineOptions reads the persistent flags shared by every command.
func engineOptions(cmd *cobra.Command) cli.EngineOptions {
	dir, _ := cmd.Flags().GetString("dir")
	loader, _ := cmd.Flags().GetString("loader")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.EngineOptions{RepoPath: dir, Loader: loader, Debug: debug}
}
