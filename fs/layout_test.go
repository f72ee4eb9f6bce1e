package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRecord(name string) Record {
	return Record{
		Name:           name,
		DatabaseID:     0,
		Persistency:    0,
		IsDummyStandby: false,
		Xmin:           5,
		CatalogXmin:    6,
		RestartLSN:     0x1000,
	}
}

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	l := NewLayout(t.TempDir(), NewFileIO())
	require.NoError(t, l.EnsureRoot(context.Background()))
	return l
}

func TestCreateOnDiskThenRestoreOneRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	rec := testRecord("s1")
	require.NoError(t, l.CreateOnDisk(ctx, "s1", rec))

	got, outcome, err := l.RestoreOne(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, RestoreClean, outcome)
	require.Equal(t, rec, got)
}

func TestCreateOnDiskSalvagesStaleTmpDir(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	staleTmp := filepath.Join(l.Dir, "s1.tmp")
	require.NoError(t, os.MkdirAll(staleTmp, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(staleTmp, "garbage"), []byte("x"), 0o600))

	require.NoError(t, l.CreateOnDisk(ctx, "s1", testRecord("s1")))

	_, err := os.Stat(staleTmp)
	require.True(t, os.IsNotExist(err))
}

func TestWriteRecordThenReReadSeesDirtyUpdate(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	rec := testRecord("s1")
	require.NoError(t, l.CreateOnDisk(ctx, "s1", rec))

	rec.RestartLSN = 0x9999
	require.NoError(t, l.WriteRecord(ctx, l.path("s1"), rec))

	got, outcome, err := l.RestoreOne(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, RestoreClean, outcome)
	require.Equal(t, uint64(0x9999), got.RestartLSN)
}

func TestRestoreOneSalvagesFromBackupOnCorruptPrimary(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	rec := testRecord("s1")
	require.NoError(t, l.CreateOnDisk(ctx, "s1", rec))

	statePath := filepath.Join(l.path("s1"), stateFilename)
	buf, err := os.ReadFile(statePath)
	require.NoError(t, err)
	buf[0] ^= 0xFF
	require.NoError(t, os.WriteFile(statePath, buf, filePerm))

	got, outcome, err := l.RestoreOne(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, RestoreSalvaged, outcome)
	require.Equal(t, rec, got)

	got2, outcome2, err := l.RestoreOne(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, RestoreClean, outcome2)
	require.Equal(t, rec, got2)
}

func TestRestoreOneFatalWhenBothCopiesCorrupt(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	require.NoError(t, l.CreateOnDisk(ctx, "s1", testRecord("s1")))

	dir := l.path("s1")
	for _, fn := range []string{stateFilename, backupFilename} {
		p := filepath.Join(dir, fn)
		buf, err := os.ReadFile(p)
		require.NoError(t, err)
		buf[0] ^= 0xFF
		require.NoError(t, os.WriteFile(p, buf, filePerm))
	}

	_, _, err := l.RestoreOne(ctx, "s1")
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestRestoreOneDiscardsEphemeralSlot(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	rec := testRecord("e1")
	rec.Persistency = 1
	require.NoError(t, l.CreateOnDisk(ctx, "e1", rec))

	_, outcome, err := l.RestoreOne(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, RestoreDiscardedEphemeral, outcome)

	_, statErr := os.Stat(l.path("e1"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRestoreOneRemovesStaleTmpStateBeforeReading(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	rec := testRecord("s1")
	require.NoError(t, l.CreateOnDisk(ctx, "s1", rec))

	tmpPath := filepath.Join(l.path("s1"), tmpStateFilename)
	require.NoError(t, os.WriteFile(tmpPath, []byte("garbage"), filePerm))

	got, outcome, err := l.RestoreOne(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, RestoreClean, outcome)
	require.Equal(t, rec, got)

	_, statErr := os.Stat(tmpPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestRenameToDropTmpThenRemoveDropTmp(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	require.NoError(t, l.CreateOnDisk(ctx, "s1", testRecord("s1")))
	require.NoError(t, l.RenameToDropTmp(ctx, "s1"))
	require.False(t, l.Exists(ctx, "s1"))

	_, err := os.Stat(l.tmpDirPath("s1"))
	require.NoError(t, err)

	require.NoError(t, l.RemoveDropTmp(ctx, "s1"))
	_, err = os.Stat(l.tmpDirPath("s1"))
	require.True(t, os.IsNotExist(err))
}

func TestListEntriesAndRemoveTmpEntry(t *testing.T) {
	ctx := context.Background()
	l := newTestLayout(t)

	require.NoError(t, l.CreateOnDisk(ctx, "s1", testRecord("s1")))
	require.NoError(t, os.MkdirAll(filepath.Join(l.Dir, "stray.tmp"), 0o700))

	entries, err := l.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, l.RemoveTmpEntry(ctx, "stray.tmp"))
	entries, err = l.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
