package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/dedupe"
	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/model"
)

const lockFile = ".lock"

// lockPoll is how often LockPeriod retries a period locked by another process.
var lockPoll = 50 * time.Millisecond

// FileStore keeps the ledger as one journal.csv per period under <root>/YYYY/MM/.
type FileStore struct {
	root string

	mu      sync.Mutex
	periods map[string]chan struct{}       // in-process period locks
	index   map[string]map[string]struct{} // period -> fingerprints, loaded lazily
}

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{
		root:    root,
		periods: make(map[string]chan struct{}),
		index:   make(map[string]map[string]struct{}),
	}
}

// Root returns the ledger directory.
func (s *FileStore) Root() string { return s.root }

// Exists reports whether an entry with fingerprint is stored in period.
func (s *FileStore) Exists(ctx context.Context, fingerprint, period string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadIndex(period)
	if err != nil {
		return false, err
	}
	_, ok := idx[fingerprint]
	return ok, nil
}

// Commit appends a balanced batch to its period's journal.csv and returns the new line IDs.
// All lines of a batch share one entry sequence. The caller holds the period lock.
func (s *FileStore) Commit(ctx context.Context, batch model.JournalBatch) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(batch.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty journal %s", apperrors.ErrValidation, batch.Key)
	}
	if !batch.Balanced() {
		return nil, fmt.Errorf("%w: journal %s does not balance", apperrors.ErrValidation, batch.Key)
	}

	period := batch.Period()
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ReadPeriod(period)
	if err != nil {
		return nil, err
	}

	entryID, err := id.ForPeriod(period, nextSeq(existing))
	if err != nil {
		return nil, err
	}

	newEntries := make([]model.LedgerEntry, len(batch.Entries))
	ids := make([]string, len(batch.Entries))
	for i, e := range batch.Entries {
		ids[i] = id.FormatLineID(entryID, i)
		newEntries[i] = model.LedgerEntry{
			ID:             ids[i],
			Period:         period,
			Fingerprint:    dedupe.Fingerprint(e),
			CandidateEntry: e,
		}
	}

	// Validate the period as it will be after the append.
	all := append(existing, newEntries...)
	if verrs := ValidatePeriod(all, period); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
	}

	if err := s.appendPeriod(period, newEntries); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLedgerUnavailable, err)
	}

	if idx, ok := s.index[period]; ok {
		for _, e := range newEntries {
			idx[e.Fingerprint] = struct{}{}
		}
	}
	return ids, nil
}

// LockPeriod serializes writers of a period: an in-process lock plus an
// advisory flock on <period>/.lock, which the kernel drops if the holder exits.
// Locking discards the cached fingerprint index of the period so Exists rereads
// commits made by other processes. It gives up with apperrors.ErrLockFailed
// when ctx ends first.
func (s *FileStore) LockPeriod(ctx context.Context, period string) (func(), error) {
	s.mu.Lock()
	ch, ok := s.periods[period]
	if !ok {
		ch = make(chan struct{}, 1)
		s.periods[period] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: period %s: %v", apperrors.ErrLockFailed, period, ctx.Err())
	}

	path, err := s.lockPath(period)
	if err != nil {
		<-ch
		return nil, err
	}
	fl, err := acquireFileLock(ctx, path)
	if err != nil {
		<-ch
		return nil, fmt.Errorf("%w: period %s: %v", apperrors.ErrLockFailed, period, err)
	}

	s.mu.Lock()
	delete(s.index, period)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fl.Unlock()
			<-ch
		})
	}, nil
}

func acquireFileLock(ctx context.Context, path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating period dir: %w", err)
	}
	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, lockPoll)
	if err != nil {
		return nil, fmt.Errorf("lock file %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock file %s held", path)
	}
	return fl, nil
}

// ReadPeriod reads all entries of a "2006-01" period.
func (s *FileStore) ReadPeriod(period string) ([]model.LedgerEntry, error) {
	path, err := s.periodPath(period)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening journal %s: %v", apperrors.ErrLedgerUnavailable, path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading journal %s: %v", apperrors.ErrLedgerUnavailable, path, err)
	}
	return entries, nil
}

func (s *FileStore) loadIndex(period string) (map[string]struct{}, error) {
	if idx, ok := s.index[period]; ok {
		return idx, nil
	}
	entries, err := s.ReadPeriod(period)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		idx[e.Fingerprint] = struct{}{}
	}
	s.index[period] = idx
	return idx, nil
}

func (s *FileStore) appendPeriod(period string, entries []model.LedgerEntry) error {
	path, err := s.periodPath(period)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendEntries(f, entries); err != nil {
		return fmt.Errorf("appending entries: %w", err)
	}
	return f.Sync()
}

// nextSeq returns the next available entry sequence for a period.
func nextSeq(entries []model.LedgerEntry) int {
	maxSeq := 0
	for _, e := range entries {
		_, _, seq, err := id.ParseEntryID(e.ID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

func (s *FileStore) periodPath(period string) (string, error) {
	t, err := time.Parse(model.PeriodFormat, period)
	if err != nil {
		return "", fmt.Errorf("invalid period %q: %w", period, err)
	}
	return filepath.Join(s.root, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), "journal.csv"), nil
}

func (s *FileStore) lockPath(period string) (string, error) {
	p, err := s.periodPath(period)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), lockFile), nil
}
