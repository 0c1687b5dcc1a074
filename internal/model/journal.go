package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/atlas-finance/wisebook/internal/money"
)

// PeriodFormat is the layout of an accounting period key ("2025-01").
const PeriodFormat = "2006-01"

// PeriodOf returns the accounting period of a date.
func PeriodOf(t time.Time) string {
	return t.Format(PeriodFormat)
}

// RawRow is one undecoded line of an import file.
type RawRow struct {
	Line    int               // 1-based source line
	BatchID string            // import file or sheet identifier
	Values  []string          // positional cells
	Named   map[string]string // cells keyed by header, lowercased
}

// Origin records who produced an entry.
type Origin string

const (
	OriginImported        Origin = "imported"
	OriginSystemGenerated Origin = "system-generated"
)

// CandidateEntry is a parsed journal line awaiting validation.
type CandidateEntry struct {
	Row       int
	Account   string
	Label     string
	Debit     money.Money // zero if credit side
	Credit    money.Money // zero if debit side
	Reference string
	Date      time.Time
	Origin    Origin
}

var errOneSide = errors.New("entry must have exactly one of debit or credit")

// Validate checks the one-side invariant.
func (e CandidateEntry) Validate() error {
	if e.Debit.IsZero() == e.Credit.IsZero() {
		return errOneSide
	}
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return fmt.Errorf("negative amount on row %d", e.Row)
	}
	return nil
}

// Side returns the side carrying the amount.
func (e CandidateEntry) Side() Side {
	if !e.Debit.IsZero() {
		return SideDebit
	}
	return SideCredit
}

// Amount returns the nonzero side's amount.
func (e CandidateEntry) Amount() money.Money {
	if e.Side() == SideDebit {
		return e.Debit
	}
	return e.Credit
}

// Period returns the accounting period of the entry date.
func (e CandidateEntry) Period() string {
	return PeriodOf(e.Date)
}

// BatchKey groups entries into a journal. Amounts never take part in grouping.
type BatchKey struct {
	Reference string
	Date      time.Time
}

func (k BatchKey) String() string {
	return k.Reference + "@" + k.Date.Format("2006-01-02")
}

// JournalBatch is a transient group of entries that must balance before commit.
type JournalBatch struct {
	Key     BatchKey
	Entries []CandidateEntry
}

// Period returns the accounting period of the batch.
func (b JournalBatch) Period() string {
	return PeriodOf(b.Key.Date)
}

// Rows returns the source rows of the batch entries, skipping system-generated lines.
func (b JournalBatch) Rows() []int {
	var rows []int
	for _, e := range b.Entries {
		if e.Origin != OriginSystemGenerated {
			rows = append(rows, e.Row)
		}
	}
	return rows
}

// Totals sums both sides. It fails when entries mix currencies.
func (b JournalBatch) Totals() (debit, credit money.Money, err error) {
	for _, e := range b.Entries {
		if debit, err = debit.Add(e.Debit); err != nil {
			return money.Money{}, money.Money{}, err
		}
		if credit, err = credit.Add(e.Credit); err != nil {
			return money.Money{}, money.Money{}, err
		}
	}
	if debit.Currency != "" && credit.Currency != "" && debit.Currency != credit.Currency {
		return money.Money{}, money.Money{}, fmt.Errorf("%s vs %s: %w", debit.Currency, credit.Currency, money.ErrCurrencyMismatch)
	}
	return debit, credit, nil
}

// Balanced reports whether sum(debit) == sum(credit).
func (b JournalBatch) Balanced() bool {
	debit, credit, err := b.Totals()
	return err == nil && debit.Amount == credit.Amount
}

// LedgerEntry is a committed entry as held by a ledger store.
type LedgerEntry struct {
	ID          string
	Period      string
	Fingerprint string
	CandidateEntry
}
