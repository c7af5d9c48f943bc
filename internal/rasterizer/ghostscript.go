package rasterizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/weiawesome/pdf-thumbnail/internal/errors"
)

// DefaultGhostscriptPath is where Lambda layers and most distros install gs.
const DefaultGhostscriptPath = "/usr/bin/gs"

// pipe is Ghostscript's name for stdin/stdout.
const pipe = "-"

// waitDelay bounds how long Wait keeps draining pipes after gs is killed or
// exits. Grandchildren of a wrapper script may otherwise hold them open.
const waitDelay = 2 * time.Second

// Config holds Ghostscript settings.
type Config struct {
	Path string `mapstructure:"path"`
}

// Ghostscript implements StreamRasterizer by running one gs process per call.
type Ghostscript struct {
	path string
}

var _ StreamRasterizer = (*Ghostscript)(nil)

// NewGhostscript creates a Ghostscript rasterizer.
func NewGhostscript(cfg Config) *Ghostscript {
	path := cfg.Path
	if path == "" {
		path = DefaultGhostscriptPath
	}
	return &Ghostscript{path: path}
}

// Args returns the gs argument list for one page-1 PNG rendering.
func Args(resolution int, input, output string) []string {
	res := strconv.Itoa(resolution)
	return []string{
		"-dQUIET",
		"-dPARANOIDSAFER",
		"-dBATCH",
		"-dNOPAUSE",
		"-dNOPROMPT",
		"-sDEVICE=png16m",
		"-dTextAlphaBits=4",
		"-dGraphicsAlphaBits=4",
		"-dDEVICEXRESOLUTION=" + res,
		"-dDEVICEYRESOLUTION=" + res,
		"-dFirstPage=1",
		"-dLastPage=1",
		"-sOutputFile=" + output,
		input,
	}
}

func (g *Ghostscript) command(ctx context.Context, resolution int, input, output string) (*exec.Cmd, *bytes.Buffer, error) {
	if resolution <= 0 {
		return nil, nil, apperrors.Newf(apperrors.KindConversion, "invalid resolution %d", resolution)
	}

	cmd := exec.CommandContext(ctx, g.path, Args(resolution, input, output)...)
	// gs leads its own process group so cancellation also reaps any
	// children a wrapper script spawned.
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	return cmd, &stderr, nil
}

// Rasterize converts an in-memory PDF and returns the PNG bytes.
func (g *Ghostscript) Rasterize(ctx context.Context, pdf []byte, resolution int) ([]byte, error) {
	cmd, stderr, err := g.command(ctx, resolution, pipe, pipe)
	if err != nil {
		return nil, err
	}

	var stdout bytes.Buffer
	cmd.Stdin = bytes.NewReader(pdf)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, conversionError(err, stderr)
	}

	return stdout.Bytes(), nil
}

// RasterizeStream pipes r into gs and returns its stdout. The returned
// reader yields the process failure in place of io.EOF if gs exits
// abnormally. Closing before EOF kills the process.
func (g *Ghostscript) RasterizeStream(ctx context.Context, r io.Reader, resolution int) (io.ReadCloser, error) {
	cmd, stderr, err := g.command(ctx, resolution, pipe, pipe)
	if err != nil {
		return nil, err
	}

	cmd.Stdin = r
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConversion, "stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, conversionError(err, stderr)
	}

	return &processReader{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// RasterizeFile converts inPath and writes the PNG to outPath.
func (g *Ghostscript) RasterizeFile(ctx context.Context, inPath, outPath string, resolution int) error {
	return g.toFile(ctx, nil, inPath, outPath, resolution)
}

// RasterizeStreamToFile pipes r into gs and writes the PNG to outPath.
func (g *Ghostscript) RasterizeStreamToFile(ctx context.Context, r io.Reader, outPath string, resolution int) error {
	return g.toFile(ctx, r, pipe, outPath, resolution)
}

func (g *Ghostscript) toFile(ctx context.Context, stdin io.Reader, input, outPath string, resolution int) error {
	cmd, stderr, err := g.command(ctx, resolution, input, outPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return apperrors.Wrap(err, apperrors.KindConversion, "create output directory")
	}

	cmd.Stdin = stdin
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return conversionError(err, stderr)
	}

	return nil
}

func conversionError(err error, stderr *bytes.Buffer) error {
	msg := "ghostscript failed"
	if s := strings.TrimSpace(stderr.String()); s != "" {
		msg = fmt.Sprintf("ghostscript failed (stderr: %s)", s)
	}
	return apperrors.Wrap(err, apperrors.KindConversion, msg)
}

// processReader streams a running process' stdout and reaps it at EOF.
type processReader struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	drained bool

	once sync.Once
	err  error
}

func (p *processReader) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if err == io.EOF {
		p.drained = true
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (p *processReader) wait() error {
	p.once.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			p.err = conversionError(err, p.stderr)
		}
	})
	return p.err
}

// Close reaps the process. If the caller stopped reading early the process
// group may be blocked on a full pipe, so it is killed first and its exit
// status is not reported.
func (p *processReader) Close() error {
	if !p.drained {
		_ = killProcessGroup(p.cmd)
		_ = p.wait()
		return nil
	}
	return p.wait()
}
