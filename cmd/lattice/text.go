package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/tui"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/spf13/cobra"
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Manage the llms.txt blob served at /llms.txt",
	Long: `Shows, sets or clears the llms.txt text in the store lattice serve uses: Postgres when
LATTICE_PG_URL is set, else Redis when LATTICE_REDIS_URL is set, else <dir>/.lattice/llms.txt.`,
}

var textShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackends(cmd, func(b *cli.Backends) error {
			content, err := b.Texts.Get(cmd.Context())
			if errors.Is(err, domain.ErrTextNotSet) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No llms.txt set.")
				return nil
			}
			if err != nil {
				return err
			}
			if raw, _ := cmd.Flags().GetBool("raw"); !raw {
				if content, err = tui.NewRenderer()(content); err != nil {
					return err
				}
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		})
	},
}

var textSetCmd = &cobra.Command{
	Use:   "set [file]",
	Short: "Replace the text with a file's content (stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			content []byte
			err     error
		)
		if len(args) == 1 {
			content, err = os.ReadFile(args[0])
		} else {
			content, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
		return withBackends(cmd, func(b *cli.Backends) error {
			if err := b.Texts.Set(cmd.Context(), string(content)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes.\n", len(content))
			return nil
		})
	},
}

var textClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackends(cmd, func(b *cli.Backends) error {
			return b.Texts.Clear(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(textCmd)
	textCmd.AddCommand(textShowCmd, textSetCmd, textClearCmd)
	textShowCmd.Flags().Bool("raw", false, "Print Markdown instead of rendering it")
}

func withBackends(cmd *cobra.Command, fn func(*cli.Backends) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b, err := cli.OpenBackends(cmd.Context(), cfg, cfg.Logger())
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}
