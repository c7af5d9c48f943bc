package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/weiawesome/pdf-thumbnail/internal/app"
	"github.com/weiawesome/pdf-thumbnail/internal/handler"
	"github.com/weiawesome/pdf-thumbnail/pkg/storage"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "generate <bucket> <key>",
		Short: "Create thumbnails for one stored object as if it had just been uploaded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			pipeline, err := app.New(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			bucket, key, object := args[0], args[1], args[1]
			if raw {
				if object, err = handler.DecodeKey(key); err != nil {
					return err
				}
			} else {
				key = url.QueryEscape(key)
			}

			ok, err := pipeline.Store.Exists(cmd.Context(), bucket, object)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s/%s: %w", bucket, object, storage.ErrNotFound)
			}

			res, err := pipeline.Handler.Handle(cmd.Context(), []handler.Record{{Bucket: bucket, Key: key}})
			for _, out := range res.Processed {
				for _, k := range out.Thumbnails {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", out.DestinationBucket, k)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Treat key as event-encoded ('+' for space, percent escapes)")

	return cmd
}
