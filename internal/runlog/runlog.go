package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-finance/wisebook/internal/model"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	Source     string
	Status     model.RunStatus
	Accepted   int
	Rejected   int
	Warned     int
	Committed  int // ledger lines written, suspense lines included
	CommitHash string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,run_id,source,status,accepted,rejected,warned,committed,commit_hash"

const (
	numFields     = 9
	logDir        = "logs"
	logFile       = "logs/import-log.csv"
	colTimestamp  = 0
	colRunID      = 1
	colSource     = 2
	colStatus     = 3
	colAccepted   = 4
	colRejected   = 5
	colWarned     = 6
	colCommitted  = 7
	colCommitHash = 8
)

// FromReport summarizes a finished run.
func FromReport(r *model.Report) Entry {
	return Entry{
		Timestamp: r.FinishedAt,
		RunID:     r.RunID,
		Source:    r.Source,
		Status:    r.Status,
		Accepted:  r.Accepted,
		Rejected:  r.Rejected,
		Warned:    r.Warned,
		Committed: len(r.CommittedIDs()),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colSource] = e.Source
	row[colStatus] = string(e.Status)
	row[colAccepted] = strconv.Itoa(e.Accepted)
	row[colRejected] = strconv.Itoa(e.Rejected)
	row[colWarned] = strconv.Itoa(e.Warned)
	row[colCommitted] = strconv.Itoa(e.Committed)
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 4)
	for i, col := range []int{colAccepted, colRejected, colWarned, colCommitted} {
		counts[i], err = strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
	}

	return Entry{
		Timestamp:  ts,
		RunID:      record[colRunID],
		Source:     record[colSource],
		Status:     model.RunStatus(record[colStatus]),
		Accepted:   counts[0],
		Rejected:   counts[1],
		Warned:     counts[2],
		Committed:  counts[3],
		CommitHash: record[colCommitHash],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
