package rasterizer

import (
	"context"
	"io"
)

// Rasterizer renders the first page of a PDF to PNG at a device resolution
// (dots per inch, both axes).
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, resolution int) ([]byte, error)
}

// StreamRasterizer is implemented by rasterizers that can work on streams
// and files without materialising the whole document in memory.
type StreamRasterizer interface {
	Rasterizer
	RasterizeStream(ctx context.Context, r io.Reader, resolution int) (io.ReadCloser, error)
	RasterizeFile(ctx context.Context, inPath, outPath string, resolution int) error
	RasterizeStreamToFile(ctx context.Context, r io.Reader, outPath string, resolution int) error
}
