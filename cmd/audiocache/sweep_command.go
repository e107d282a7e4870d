package main

import (
	"github.com/spf13/cobra"

	"audiocache/internal/playback"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the TTL and LRU eviction sweeps now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			sweeper := playback.NewSweeper(store, playback.SweepConfig{
				RetentionAge:   cfg.RetentionAge(),
				HighWaterBytes: cfg.HighWaterBytes(),
				LowWaterBytes:  cfg.LowWaterBytes(),
				Interval:       cfg.SweepInterval(),
			}, logger)

			expired, evicted, err := sweeper.RunOnce()
			if err != nil {
				return err
			}
			cmd.Printf("swept: %d expired, %d over budget\n", expired, evicted)
			return nil
		},
	}
}
