package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audiocache/internal/download"
	"audiocache/internal/playback"
	"audiocache/internal/progress"
)

// literalResolver serves a URL supplied on the command line in place of the
// host application's content-resolution collaborator.
type literalResolver struct {
	url string
}

func (r literalResolver) ResolveStreamingURL(context.Context, playback.Track) (string, error) {
	if r.url == "" {
		return "", errors.New("no source url provided")
	}
	return r.url, nil
}

func newPrefetchCommand(ctx *commandContext) *cobra.Command {
	var contentID, name, url string
	var size int64

	cmd := &cobra.Command{
		Use:   "prefetch <track-id>",
		Short: "Download a track into the cache for offline playback",
		Args:  cobra.ExactArgs(1),
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

			tracker := progress.NewTracker(logger)
			coordinator := download.NewCoordinator(store, nil, tracker, logger, download.Options{
				UserAgent:        cfg.Download.UserAgent,
				StallTimeout:     cfg.StallTimeout(),
				ProgressInterval: cfg.ProgressInterval(),
			})
			facade, err := playback.NewFacade(store, coordinator, literalResolver{url: url}, tracker, logger)
			if err != nil {
				return err
			}

			track := playback.Track{
				ID:                   args[0],
				RemoteContentID:      contentID,
				DisplayFilename:      name,
				ApproximateSizeBytes: size,
			}
			handle, err := facade.StartOfflineDownload(cmd.Context(), track, func(bytesSoFar, totalBytes int64) {
				if totalBytes > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\r%s / %s", humanize.IBytes(uint64(bytesSoFar)), humanize.IBytes(uint64(totalBytes)))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "\r%s", humanize.IBytes(uint64(bytesSoFar)))
				}
			})
			if err != nil {
				return err
			}

			<-handle.Done()
			fmt.Fprintln(cmd.OutOrStdout())
			if err := handle.Err(); err != nil {
				return fmt.Errorf("download failed (rerun to retry): %w", err)
			}
			cmd.Printf("cached %s\n", track.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&contentID, "content-id", "", "Stable remote content identifier")
	cmd.Flags().StringVar(&name, "name", "", "Display filename for the track")
	cmd.Flags().StringVar(&url, "url", "", "Signed source URL to download from")
	cmd.Flags().Int64Var(&size, "size", 0, "Expected size in bytes, if known")
	_ = cmd.MarkFlagRequired("content-id")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
