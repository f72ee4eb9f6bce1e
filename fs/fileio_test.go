package fs

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldRetryClassifiesPermanentErrors(t *testing.T) {
	permanent := []error{
		syscall.ENOSPC,
		syscall.EROFS,
		syscall.EACCES,
		syscall.EDQUOT,
		syscall.EPERM,
		syscall.ENAMETOOLONG,
		syscall.ENOTDIR,
		syscall.EISDIR,
		syscall.EINVAL,
		context.Canceled,
		context.DeadlineExceeded,
	}
	for _, err := range permanent {
		require.Falsef(t, shouldRetry(err), "expected %v to be classified permanent", err)
	}
}

func TestShouldRetryAllowsTransientErrors(t *testing.T) {
	require.True(t, shouldRetry(errors.New("connection reset")))
	require.True(t, shouldRetry(syscall.EINTR))
	require.True(t, shouldRetry(syscall.EAGAIN))
}

func TestDefaultFileIOWriteReadRoundTrip(t *testing.T) {
	fio := NewFileIO()
	ctx := context.Background()
	dir := t.TempDir()
	path := dir + "/f"

	require.NoError(t, fio.WriteFile(ctx, path, []byte("hello"), 0o600))
	require.True(t, fio.Exists(ctx, path))

	got, err := fio.ReadFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	require.NoError(t, fio.Fsync(ctx, path))
	require.NoError(t, fio.Remove(ctx, path))
	require.False(t, fio.Exists(ctx, path))
}

func TestDefaultFileIOMkdirAllAndReadDir(t *testing.T) {
	fio := NewFileIO()
	ctx := context.Background()
	dir := t.TempDir()
	sub := dir + "/a/b"

	require.NoError(t, fio.MkdirAll(ctx, sub, 0o700))
	entries, err := fio.ReadDir(ctx, dir+"/a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b", entries[0].Name())
}
