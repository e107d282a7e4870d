package main

import (
	"github.com/spf13/cobra"
)

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <track-id>",
		Short: "Delete a track's cached content and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if _, ok := store.Lookup(args[0]); !ok {
				cmd.Printf("no cache entry for %s\n", args[0])
				return nil
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			cmd.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
