package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached tracks and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			stats, err := store.CurrentStats()
			if err != nil {
				return err
			}
			styled := isatty.IsTerminal(os.Stdout.Fd())
			cmd.Println(renderStatus(store.List(), stats, styled))
			return nil
		},
	}
}
