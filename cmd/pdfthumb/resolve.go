package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiawesome/pdf-thumbnail/internal/resolver"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <source-bucket>",
		Short: "Print the destination bucket configured for a source bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			r, closeFn, err := resolver.New(cmd.Context(), cfg.Destination, cfg.AWS.Region)
			if err != nil {
				return err
			}
			defer closeFn()

			dst, err := r.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), dst)
			return nil
		},
	}
}
