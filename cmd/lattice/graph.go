package main

import (
	"fmt"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <group>",
	Short: "Export a group as a Mermaid state diagram",
	Long: `Outputs a Mermaid stateDiagram-v2 of the group. With --session, the states of the
session's current vector are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := engineOptions(cmd)
		engine, err := cli.NewEngine(opts, logging.NewNop())
		if err != nil {
			return err
		}
		chart, err := engine.Chart(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			redisURL, _ := cmd.Flags().GetString("redis-url")
			store, err := cli.NewSnapshotStore(opts.RepoPath, redisURL)
			if err != nil {
				return err
			}
			snap, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			if snap.Group != chart.Name {
				return fmt.Errorf("session %q belongs to group %q", sessionID, snap.Group)
			}
			overlay = &graph.GraphOverlay{Vector: snap.Vector}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(chart, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the current vector of this session")
	graphCmd.Flags().String("redis-url", "", "Read the session from Redis instead of the local store")
}
