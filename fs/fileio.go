package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// FileIO defines the filesystem operations the layout manager needs. The
// default implementation delegates to os with retry semantics for
// transient errors, grounded on the teacher's fs.FileIO/defaultFileIO.
type FileIO interface {
	WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	RemoveAll(ctx context.Context, path string) error
	Rename(ctx context.Context, oldpath, newpath string) error
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error)
	Exists(ctx context.Context, path string) bool
	// Fsync opens path (file or directory) and calls Sync on it, the
	// primitive every durability guarantee in this package is built from.
	Fsync(ctx context.Context, path string) error
}

type defaultFileIO struct{}

// NewFileIO returns a FileIO that performs I/O via the os package with
// retry handling for transient errors.
func NewFileIO() FileIO {
	return defaultFileIO{}
}

// withRetry wraps a transient-error-prone operation with a bounded
// Fibonacci backoff, grounded on the teacher's top-level Retry/ShouldRetry
// helpers. Only errors shouldRetry classifies as transient are retried;
// permanent conditions (ENOSPC, EROFS, permission, not-exist) return
// immediately so a single bad write doesn't stall a caller for seconds.
func withRetry(ctx context.Context, op func() error) error {
	b := retry.NewFibonacci(10 * time.Millisecond)
	return retry.Do(ctx, retry.WithMaxRetries(5, b), func(ctx context.Context) error {
		err := op()
		if err == nil {
			return nil
		}
		if shouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) || errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENAMETOOLONG),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.EINVAL):
		return false
	}
	return true
}

func (defaultFileIO) WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	return withRetry(ctx, func() error { return os.WriteFile(name, data, perm) })
}

func (defaultFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var ba []byte
	err := withRetry(ctx, func() error {
		var err error
		ba, err = os.ReadFile(name)
		return err
	})
	return ba, err
}

func (defaultFileIO) Remove(ctx context.Context, name string) error {
	return withRetry(ctx, func() error { return os.Remove(name) })
}

func (defaultFileIO) RemoveAll(ctx context.Context, path string) error {
	return withRetry(ctx, func() error { return os.RemoveAll(path) })
}

func (defaultFileIO) Rename(ctx context.Context, oldpath, newpath string) error {
	return withRetry(ctx, func() error { return os.Rename(oldpath, newpath) })
}

func (defaultFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return withRetry(ctx, func() error { return os.MkdirAll(path, perm) })
}

func (defaultFileIO) ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := withRetry(ctx, func() error {
		var err error
		entries, err = os.ReadDir(dir)
		return err
	})
	return entries, err
}

func (defaultFileIO) Exists(ctx context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (defaultFileIO) Fsync(ctx context.Context, path string) error {
	return withRetry(ctx, func() error {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Sync()
	})
}
