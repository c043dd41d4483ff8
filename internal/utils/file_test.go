package utils

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("creates parents and writes content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "index.json")
		require.NoError(t, WriteFileAtomic(path, []byte(`{"v":1}`), 0o644))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"v":1}`, string(data))
	})

	t.Run("replaces existing content and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "index.json")
		require.NoError(t, WriteFileAtomic(path, []byte("old"), 0o644))
		require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o644))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestRemoveTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))
	leftover := path + TempMarker + "123"
	require.NoError(t, os.WriteFile(leftover, []byte("half"), 0o644))

	assert.True(t, IsTempPath(leftover))
	assert.False(t, IsTempPath(path))

	n, err := RemoveTempFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, FileExists(leftover))
	assert.True(t, FileExists(path))
}

func TestNormPath(t *testing.T) {
	assert.Equal(t, "content/a.json", NormPath("/content/./a.json"))
	assert.Equal(t, "content/a.json", NormPath("content//a.json"))
}

func TestMultiLogHandler_FansOut(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	h := NewMultiLogHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(h).With("component", "test")

	logger.Debug("quiet")
	logger.Info("loud")

	assert.Contains(t, debugBuf.String(), "quiet")
	assert.Contains(t, debugBuf.String(), "loud")
	assert.NotContains(t, infoBuf.String(), "quiet")
	assert.Contains(t, infoBuf.String(), "component=test")
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestLogInterceptor_PrefixesCompleteLines(t *testing.T) {
	var out bytes.Buffer
	li := NewLogInterceptor(&out)
	li.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	n, err := li.Write([]byte("first\nsecond\r\npar"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	assert.Equal(t, "line=1 time=2025-01-02T03:04:05Z first\nline=2 time=2025-01-02T03:04:05Z second\n", out.String())

	_, err = li.Write([]byte("tial"))
	require.NoError(t, err)
	require.NoError(t, li.Close())
	assert.Contains(t, out.String(), "line=3 time=2025-01-02T03:04:05Z partial\n")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "*****", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short123"))
	assert.Equal(t, "tok_*****", MaskSecret("tok_0123456789"))
}
