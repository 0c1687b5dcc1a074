package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/dedupe"
	"github.com/atlas-finance/wisebook/internal/model"
)

func TestFileStore_CommitNewPeriod(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	ids, err := s.Commit(ctx, journal(line(2, "601", 1000, 0), line(3, "401", 0, 1000)))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-001a", "2025-01-001b"}, ids)

	_, err = os.Stat(filepath.Join(dir, "2025", "01", "journal.csv"))
	require.NoError(t, err)

	entries, err := s.ReadPeriod("2025-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "601", entries[0].Account)
	assert.Equal(t, dedupe.Fingerprint(entries[0].CandidateEntry), entries[0].Fingerprint)
}

func TestFileStore_CommitSequences(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	_, err := s.Commit(ctx, journal(line(2, "601", 1000, 0), line(3, "401", 0, 1000)))
	require.NoError(t, err)

	j2 := journal(line(4, "521", 500, 0), line(5, "411", 0, 500))
	j2.Key.Reference = "J2"
	ids, err := s.Commit(ctx, j2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-002a", "2025-01-002b"}, ids)

	entries, err := s.ReadPeriod("2025-01")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Empty(t, ValidatePeriod(entries, "2025-01"))
}

func TestFileStore_CommitRejectsUnbalanced(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	_, err := s.Commit(context.Background(), journal(line(2, "601", 1000, 0), line(3, "401", 0, 900)))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = os.Stat(filepath.Join(dir, "2025", "01", "journal.csv"))
	assert.True(t, os.IsNotExist(err), "nothing written")
}

func TestFileStore_Exists(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()
	e := line(2, "601", 1000, 0)
	fp := dedupe.Fingerprint(e)

	ok, err := s.Exists(ctx, fp, "2025-01")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Commit(ctx, journal(e, line(3, "401", 0, 1000)))
	require.NoError(t, err)

	ok, err = s.Exists(ctx, fp, "2025-01")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, fp, "2025-02")
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh store reads the fingerprint back from disk.
	ok, err = NewFileStore(s.Root()).Exists(ctx, fp, "2025-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_ReadPeriod_NonExistent(t *testing.T) {
	entries, err := NewFileStore(t.TempDir()).ReadPeriod("2025-06")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestFileStore_ReadPeriod_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2025", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025", "01", "journal.csv"), []byte("not,a,journal\n"), 0o644))

	_, err := NewFileStore(dir).ReadPeriod("2025-01")
	assert.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)
}

func TestFileStore_LockPeriod(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	release, err := s.LockPeriod(ctx, "2025-01")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "2025", "01", lockFile))
	require.NoError(t, err)

	// Second in-process locker waits until ctx expires.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.LockPeriod(short, "2025-01")
	assert.ErrorIs(t, err, apperrors.ErrLockFailed)

	// Other periods are independent.
	releaseFeb, err := s.LockPeriod(ctx, "2025-02")
	require.NoError(t, err)
	releaseFeb()

	release()
	release() // idempotent

	release, err = s.LockPeriod(ctx, "2025-01")
	require.NoError(t, err)
	release()
}

func TestFileStore_LockFileHeldByOtherProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025", "01", lockFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	other := flock.New(path)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	s := NewFileStore(dir)
	short, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = s.LockPeriod(short, "2025-01")
	assert.ErrorIs(t, err, apperrors.ErrLockFailed)

	// The in-process lock was released on failure.
	require.NoError(t, other.Unlock())
	release, err := s.LockPeriod(context.Background(), "2025-01")
	require.NoError(t, err)
	release()
}

func TestFileStore_StaleLockFileIsReclaimed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2025", "01", lockFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	// Left behind by a process that died mid-import.
	require.NoError(t, os.WriteFile(path, []byte("4242\n"), 0o644))

	short, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release, err := NewFileStore(dir).LockPeriod(short, "2025-01")
	require.NoError(t, err)
	release()
}

func TestFileStore_LockPeriodRefreshesIndex(t *testing.T) {
	dir := t.TempDir()
	a, b := NewFileStore(dir), NewFileStore(dir)
	ctx := context.Background()
	e := line(2, "601", 1000, 0)
	fp := dedupe.Fingerprint(e)

	ok, err := a.Exists(ctx, fp, "2025-01")
	require.NoError(t, err)
	require.False(t, ok)

	// Another process commits the same entry while a holds a cached index.
	_, err = b.Commit(ctx, journal(e, line(3, "401", 0, 1000)))
	require.NoError(t, err)

	release, err := a.LockPeriod(ctx, "2025-01")
	require.NoError(t, err)
	defer release()

	ok, err = a.Exists(ctx, fp, "2025-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_SystemGeneratedLine(t *testing.T) {
	s := NewFileStore(t.TempDir())
	sys := line(0, "471", 0, 100)
	sys.Origin = model.OriginSystemGenerated

	ids, err := s.Commit(context.Background(), journal(line(2, "601", 1000, 0), line(3, "401", 0, 900), sys))
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	entries, err := s.ReadPeriod("2025-01")
	require.NoError(t, err)
	assert.Equal(t, model.OriginSystemGenerated, entries[2].Origin)
	assert.Equal(t, 0, entries[2].Row)
}
