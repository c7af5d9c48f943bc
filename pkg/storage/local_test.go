package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestLocalPutGet(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	body := []byte("%PDF-1.4")
	require.NoError(t, s.Put(ctx, "input-bucket", "docs/test.pdf", bytes.NewReader(body), int64(len(body)), "application/pdf"))

	rc, err := s.Get(ctx, "input-bucket", "docs/test.pdf")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = os.Stat(filepath.Join(s.BasePath(), "input-bucket", "docs", "test.pdf"))
	assert.NoError(t, err)
}

func TestLocalGetMissing(t *testing.T) {
	s := newLocal(t)

	_, err := s.Get(context.Background(), "input-bucket", "missing.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalExists(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	ok, err := s.Exists(ctx, "output-bucket", "test-thumbnail.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "output-bucket", "test-thumbnail.png", bytes.NewReader([]byte("png")), 3, "image/png"))

	ok, err = s.Exists(ctx, "output-bucket", "test-thumbnail.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalKeyCannotEscapeBucket(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Put(ctx, "b", "../../escape.txt", bytes.NewReader([]byte("x")), 1, ""))

	_, err := os.Stat(filepath.Join(s.BasePath(), "b", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(s.BasePath()), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalRejectsBadBucket(t *testing.T) {
	s := newLocal(t)

	for _, bucket := range []string{"", "..", "a/b"} {
		_, err := s.Get(context.Background(), bucket, "k")
		assert.Error(t, err, "bucket %q", bucket)
	}
}

func TestNewSelectsLocal(t *testing.T) {
	st, err := New(context.Background(), Config{Type: "local", Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, st)

	_, err = New(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}
