package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

// Header is the CSV header for journal.csv.
const Header = "entry_id,date,account,label,debit,credit,currency,reference,origin,row,fingerprint"

const (
	numFields      = 11
	dateFormat     = "2006-01-02"
	colEntryID     = 0
	colDate        = 1
	colAccount     = 2
	colLabel       = 3
	colDebit       = 4
	colCredit      = 5
	colCurrency    = 6
	colRef         = 7
	colOrigin      = 8
	colRow         = 9
	colFingerprint = 10
)

// ReadEntries reads all entries from a journal.csv reader.
func ReadEntries(r io.Reader) ([]model.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []model.LedgerEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a journal.csv writer (including header).
func WriteEntries(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// AppendEntries appends entries to an existing journal.csv writer (no header).
func AppendEntries(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}

// MarshalEntry converts a LedgerEntry to a CSV row. Amounts are written in major units.
func MarshalEntry(e model.LedgerEntry) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colDate] = e.Date.Format(dateFormat)
	row[colAccount] = e.Account
	row[colLabel] = e.Label

	if !e.Debit.IsZero() {
		row[colDebit] = e.Debit.StringFixed()
	}
	if !e.Credit.IsZero() {
		row[colCredit] = e.Credit.StringFixed()
	}

	row[colCurrency] = e.Amount().Currency
	row[colRef] = e.Reference
	row[colOrigin] = string(e.Origin)
	if e.Row > 0 {
		row[colRow] = strconv.Itoa(e.Row)
	}
	row[colFingerprint] = e.Fingerprint
	return row
}

// UnmarshalEntry converts a CSV row to a LedgerEntry.
func UnmarshalEntry(record []string) (model.LedgerEntry, error) {
	if len(record) != numFields {
		return model.LedgerEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	currency := record[colCurrency]
	debit, credit := money.Zero(currency), money.Zero(currency)

	if record[colDebit] != "" {
		debit, err = money.Parse(record[colDebit], currency, money.DefaultFormat)
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = money.Parse(record[colCredit], currency, money.DefaultFormat)
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	var row int
	if record[colRow] != "" {
		if row, err = strconv.Atoi(record[colRow]); err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
		}
	}

	return model.LedgerEntry{
		ID:          record[colEntryID],
		Period:      model.PeriodOf(date),
		Fingerprint: record[colFingerprint],
		CandidateEntry: model.CandidateEntry{
			Row:       row,
			Account:   record[colAccount],
			Label:     record[colLabel],
			Debit:     debit,
			Credit:    credit,
			Reference: record[colRef],
			Date:      date,
			Origin:    model.Origin(record[colOrigin]),
		},
	}, nil
}
