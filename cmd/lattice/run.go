package main

import (
	"github.com/aretw0/lattice/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <group>",
	Short: "Drive a group interactively",
	Long: `Starts the group and reads messages from stdin, one per line, printing the machines each
message moved. Piped input switches to NDJSON. With --session the vector is persisted and a
later run resumes it; --watch reloads the group whenever its definition changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{
			EngineOptions: engineOptions(cmd),
			Group:         args[0],
			Stdin:         cmd.InOrStdin(),
			Stdout:        cmd.OutOrStdout(),
		}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.RedisURL, _ = cmd.Flags().GetString("redis-url")
		opts.AllowKinds, _ = cmd.Flags().GetStringSlice("allow")
		opts.EpsilonLimit, _ = cmd.Flags().GetInt("epsilon-limit")
		opts.StrictKinds, _ = cmd.Flags().GetBool("strict-kinds")
		return cli.Execute(opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("session", "", "Persist the vector under this session ID")
	runCmd.Flags().Bool("fresh", false, "Discard the session before starting")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner or help)")
	runCmd.Flags().BoolP("watch", "w", false, "Run in development mode with hot-reload")
	runCmd.Flags().String("redis-url", "", "Store the session in Redis")
	runCmd.Flags().StringSlice("allow", nil, "Only forward these message kinds")
	runCmd.Flags().Int("epsilon-limit", 0, "Maximum epsilon rounds per dispatch (0 keeps the default)")
	runCmd.Flags().Bool("strict-kinds", false, "Reject kinds no state handles")
}
