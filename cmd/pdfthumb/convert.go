package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiawesome/pdf-thumbnail/internal/rasterizer"
	pkgconfig "github.com/weiawesome/pdf-thumbnail/pkg/config"
)

func newConvertCmd() *cobra.Command {
	var (
		resolution int
		gsPath     string
	)

	cmd := &cobra.Command{
		Use:   "convert [input.pdf|-] [output.png|-]",
		Short: "Render the first page of a PDF to PNG",
		Long:  "Render the first page of a PDF to PNG. A missing or \"-\" input reads stdin; a missing or \"-\" output writes stdout.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := "-", "-"
			if len(args) > 0 {
				in = args[0]
			}
			if len(args) > 1 {
				out = args[1]
			}

			gs := rasterizer.NewGhostscript(rasterizer.Config{Path: gsPath})
			return convert(cmd, gs, in, out, resolution)
		},
	}

	cmd.Flags().IntVarP(&resolution, "resolution", "r", 72, "Output resolution in DPI")
	cmd.Flags().StringVar(&gsPath, "gs-path", pkgconfig.GetEnv("GHOSTSCRIPT_PATH", rasterizer.DefaultGhostscriptPath), "Ghostscript binary")

	return cmd
}

func convert(cmd *cobra.Command, gs rasterizer.StreamRasterizer, in, out string, resolution int) error {
	ctx := cmd.Context()

	switch {
	case in != "-" && out != "-":
		return gs.RasterizeFile(ctx, in, out, resolution)
	case in == "-" && out != "-":
		return gs.RasterizeStreamToFile(ctx, cmd.InOrStdin(), out, resolution)
	}

	var src io.Reader = cmd.InOrStdin()
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	rc, err := gs.RasterizeStream(ctx, src, resolution)
	if err != nil {
		return err
	}
	if _, err := io.Copy(cmd.OutOrStdout(), rc); err != nil {
		rc.Close()
		return err
	}
	return rc.Close()
}
