package fs

import (
	"fmt"
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	dirPerm  os.FileMode = 0700
	filePerm os.FileMode = 0600

	stateFilename       = "state"
	backupFilename      = "state.backup"
	tmpStateFilename    = "state.tmp"
	tmpDirSuffix        = ".tmp"
)

// FatalError marks a condition the original treats as unrecoverable: the
// caller is expected to log and panic, letting crash recovery re-run
// Startup deterministically rather than limping on with a half-restored
// table.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Layout manages the on-disk directory tree for a slot registry rooted at
// Dir: Dir/<name>/state, Dir/<name>/state.backup, Dir/<name>/state.tmp and
// Dir/<name>.tmp, matching spec.md §3's on-disk layout.
type Layout struct {
	Dir    string
	FileIO FileIO
}

// NewLayout returns a Layout rooted at dir using the given FileIO.
func NewLayout(dir string, fio FileIO) *Layout {
	return &Layout{Dir: dir, FileIO: fio}
}

func (l *Layout) path(name string) string {
	return filepath.Join(l.Dir, name)
}

func (l *Layout) tmpDirPath(name string) string {
	return filepath.Join(l.Dir, name+tmpDirSuffix)
}

// EnsureRoot creates the root directory if it does not exist, per the first
// step of the startup scan.
func (l *Layout) EnsureRoot(ctx context.Context) error {
	if l.FileIO.Exists(ctx, l.Dir) {
		return nil
	}
	if err := l.FileIO.MkdirAll(ctx, l.Dir, dirPerm); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, l.Dir)
}

// Exists reports whether the slot's live directory is present.
func (l *Layout) Exists(ctx context.Context, name string) bool {
	return l.FileIO.Exists(ctx, l.path(name))
}

// WriteRecord builds rec's on-disk bytes and writes them to dirPath,
// writing state.backup before state.tmp so that at any crash instant
// either no state exists yet (backup holds the prior or new value) or
// state is complete and both files decode — the save_to_path sequence of
// spec.md §4.3 steps 3-6. The dirty-bit bookkeeping around this call is
// the caller's responsibility; WriteRecord always writes unconditionally.
func (l *Layout) WriteRecord(ctx context.Context, dirPath string, rec Record) error {
	buf, err := Encode(rec)
	if err != nil {
		return err
	}

	backupPath := filepath.Join(dirPath, backupFilename)
	if err := l.FileIO.WriteFile(ctx, backupPath, buf, filePerm); err != nil {
		return fmt.Errorf("fs: write %s: %w", backupPath, err)
	}
	if err := l.FileIO.Fsync(ctx, backupPath); err != nil {
		return fmt.Errorf("fs: fsync %s: %w", backupPath, err)
	}

	tmpPath := filepath.Join(dirPath, tmpStateFilename)
	if err := l.FileIO.WriteFile(ctx, tmpPath, buf, filePerm); err != nil {
		return fmt.Errorf("fs: write %s: %w", tmpPath, err)
	}
	if err := l.FileIO.Fsync(ctx, tmpPath); err != nil {
		return fmt.Errorf("fs: fsync %s: %w", tmpPath, err)
	}

	statePath := filepath.Join(dirPath, stateFilename)
	if err := l.FileIO.Rename(ctx, tmpPath, statePath); err != nil {
		return fmt.Errorf("fs: rename %s: %w", tmpPath, err)
	}

	if err := l.FileIO.Fsync(ctx, statePath); err != nil {
		return err
	}
	if err := l.FileIO.Fsync(ctx, dirPath); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, l.Dir)
}

// CreateOnDisk allocates name's directory and writes its first record,
// matching spec.md §4.3's create_on_disk: salvage any leftover <name>.tmp,
// build the directory under a .tmp name, write the record into it, then
// rename into place and fsync the renamed directory and the root.
func (l *Layout) CreateOnDisk(ctx context.Context, name string, rec Record) error {
	tmpDir := l.tmpDirPath(name)
	if l.FileIO.Exists(ctx, tmpDir) {
		if err := l.FileIO.RemoveAll(ctx, tmpDir); err != nil {
			return fmt.Errorf("fs: remove stale %s: %w", tmpDir, err)
		}
	}
	if err := l.FileIO.MkdirAll(ctx, tmpDir, dirPerm); err != nil {
		return fmt.Errorf("fs: mkdir %s: %w", tmpDir, err)
	}
	if err := l.FileIO.Fsync(ctx, tmpDir); err != nil {
		return err
	}

	if err := l.WriteRecord(ctx, tmpDir, rec); err != nil {
		return err
	}

	finalDir := l.path(name)
	if err := l.FileIO.Rename(ctx, tmpDir, finalDir); err != nil {
		return fmt.Errorf("fs: rename %s: %w", tmpDir, err)
	}

	if err := l.FileIO.Fsync(ctx, finalDir); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, l.Dir)
}

// RenameToDropTmp renames name's live directory to <name>.tmp, the first
// irreversible step of a drop: once this succeeds the slot is gone from
// any later Startup scan even if the process crashes before cleanup runs.
func (l *Layout) RenameToDropTmp(ctx context.Context, name string) error {
	old := l.path(name)
	tmp := l.tmpDirPath(name)
	if err := l.FileIO.Rename(ctx, old, tmp); err != nil {
		return err
	}
	if err := l.FileIO.Fsync(ctx, tmp); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, l.Dir)
}

// RemoveDropTmp removes name's <name>.tmp directory left behind by
// RenameToDropTmp. Failure here is dormant garbage, not a drop failure.
func (l *Layout) RemoveDropTmp(ctx context.Context, name string) error {
	return l.FileIO.RemoveAll(ctx, l.tmpDirPath(name))
}

// ListEntries lists the root directory's immediate children, for the
// startup scan.
func (l *Layout) ListEntries(ctx context.Context) ([]os.DirEntry, error) {
	return l.FileIO.ReadDir(ctx, l.Dir)
}

// RemoveTmpEntry removes a stray *.tmp entry found at the root during the
// startup scan (a crash interrupted a create or a drop) and fsyncs the
// root afterward.
func (l *Layout) RemoveTmpEntry(ctx context.Context, entryName string) error {
	if err := l.FileIO.RemoveAll(ctx, filepath.Join(l.Dir, entryName)); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, l.Dir)
}

func (l *Layout) readStateFile(ctx context.Context, dirPath, filename string) ([]byte, error) {
	p := filepath.Join(dirPath, filename)
	buf, err := l.FileIO.ReadFile(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := l.FileIO.Fsync(ctx, p); err != nil {
		return nil, err
	}
	if err := l.FileIO.Fsync(ctx, dirPath); err != nil {
		return nil, err
	}
	if len(buf) != RecordSize {
		return nil, fmt.Errorf("short read of %s: got %d bytes, want %d", p, len(buf), RecordSize)
	}
	return buf, nil
}

// recoverStateFile rewrites <dirPath>/state from a record already verified
// against state.backup, matching recover_state_file: truncate, write,
// fsync, close. Any error here is fatal.
func (l *Layout) recoverStateFile(ctx context.Context, dirPath string, rec Record) error {
	buf, err := Encode(rec)
	if err != nil {
		return err
	}
	p := filepath.Join(dirPath, stateFilename)
	if err := l.FileIO.WriteFile(ctx, p, buf, filePerm); err != nil {
		return err
	}
	if err := l.FileIO.Fsync(ctx, p); err != nil {
		return err
	}
	return l.FileIO.Fsync(ctx, dirPath)
}

// RestoreOne salvages one slot directory at startup: unlink any leftover
// state.tmp (and its now-stale backup), read and verify state, retry from
// state.backup on the first checksum/magic mismatch, and panic-worthy
// (FatalError) on a second failure. A recovered-from-backup record is
// rewritten to state before being handed back. An ephemeral slot found on
// disk is a crashed transient and its directory is discarded rather than
// restored.
func (l *Layout) RestoreOne(ctx context.Context, name string) (Record, RestoreOutcome, error) {
	dir := l.path(name)

	tmpPath := filepath.Join(dir, tmpStateFilename)
	if l.FileIO.Exists(ctx, tmpPath) {
		if err := l.FileIO.Remove(ctx, tmpPath); err != nil {
			return Record{}, RestoreClean, &FatalError{Err: err}
		}
		backupPath := filepath.Join(dir, backupFilename)
		if l.FileIO.Exists(ctx, backupPath) {
			if err := l.FileIO.Remove(ctx, backupPath); err != nil {
				return Record{}, RestoreClean, &FatalError{Err: err}
			}
		}
	}

	primaryBuf, err := l.readStateFile(ctx, dir, stateFilename)
	if err != nil {
		return Record{}, RestoreClean, &FatalError{Err: fmt.Errorf("reading %s/%s: %w", dir, stateFilename, err)}
	}

	rec, decErr := Decode(primaryBuf)
	outcome := RestoreClean
	if decErr != nil {
		slog.Warn("replication slot state file failed verification, attempting backup", "slot", name, "err", decErr)

		backupBuf, berr := l.readStateFile(ctx, dir, backupFilename)
		if berr != nil {
			return Record{}, outcome, &FatalError{Err: fmt.Errorf("slot %s: state invalid (%v) and backup unreadable (%w)", name, decErr, berr)}
		}
		rec, decErr = Decode(backupBuf)
		if decErr != nil {
			return Record{}, outcome, &FatalError{Err: fmt.Errorf("slot %s: both state and state.backup failed verification: %w", name, decErr)}
		}

		outcome = RestoreSalvaged
		if err := l.recoverStateFile(ctx, dir, rec); err != nil {
			return Record{}, outcome, &FatalError{Err: fmt.Errorf("slot %s: rewriting state from backup: %w", name, err)}
		}
	}

	const persistentMarker = 0
	if rec.Persistency != persistentMarker {
		if err := l.FileIO.RemoveAll(ctx, dir); err != nil {
			slog.Warn("failed to remove crashed ephemeral slot directory", "slot", name, "err", err)
		}
		if err := l.FileIO.Fsync(ctx, l.Dir); err != nil {
			slog.Warn("failed to fsync root after discarding ephemeral slot", "slot", name, "err", err)
		}
		return rec, RestoreDiscardedEphemeral, nil
	}

	return rec, outcome, nil
}

// RestoreOutcome classifies how RestoreOne recovered a slot's state,
// duplicated from the replslot package's type of the same name so this
// package has no dependency on its caller.
type RestoreOutcome int

const (
	RestoreClean RestoreOutcome = iota
	RestoreSalvaged
	RestoreDiscardedEphemeral
)
