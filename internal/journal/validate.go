package journal

import (
	"fmt"

	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/model"
)

// ValidationError describes a single ledger invariant violation.
type ValidationError struct {
	Rule    string
	EntryID string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.EntryID, e.Message)
}

// Ledger rules checked by ValidatePeriod.
const (
	RuleBalanced   = "balanced"
	RuleOneSide    = "one-side"
	RuleInPeriod   = "in-period"
	RuleSequential = "sequential"
	RuleCurrency   = "currency"
)

// ValidatePeriod checks the stored entries of one period: every entry group
// balances in a single currency, each line has one side, dates fall in the
// period and entry sequences run 1..N without gaps.
func ValidatePeriod(entries []model.LedgerEntry, period string) []ValidationError {
	var errs []ValidationError

	groups := make(map[string]model.JournalBatch)
	var groupOrder []string
	for _, e := range entries {
		g := id.EntryGroup(e.ID)
		b, seen := groups[g]
		if !seen {
			groupOrder = append(groupOrder, g)
		}
		b.Entries = append(b.Entries, e.CandidateEntry)
		groups[g] = b
	}

	for _, g := range groupOrder {
		debit, credit, err := groups[g].Totals()
		if err != nil {
			errs = append(errs, ValidationError{Rule: RuleCurrency, EntryID: g, Message: err.Error()})
			continue
		}
		if debit.Amount != credit.Amount {
			errs = append(errs, ValidationError{
				Rule:    RuleBalanced,
				EntryID: g,
				Message: fmt.Sprintf("debits (%s) != credits (%s)", debit.StringFixed(), credit.StringFixed()),
			})
		}
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			errs = append(errs, ValidationError{Rule: RuleOneSide, EntryID: e.ID, Message: err.Error()})
		}
		if e.CandidateEntry.Period() != period {
			errs = append(errs, ValidationError{
				Rule:    RuleInPeriod,
				EntryID: e.ID,
				Message: fmt.Sprintf("date %s not in %s", e.Date.Format(dateFormat), period),
			})
		}
	}

	seqSeen := make(map[int]bool)
	for _, g := range groupOrder {
		_, _, seq, err := id.ParseEntryID(g)
		if err != nil {
			errs = append(errs, ValidationError{Rule: RuleSequential, EntryID: g, Message: fmt.Sprintf("invalid entry ID: %v", err)})
			continue
		}
		seqSeen[seq] = true
	}
	for i := 1; i <= len(seqSeen); i++ {
		if !seqSeen[i] {
			errs = append(errs, ValidationError{
				Rule:    RuleSequential,
				EntryID: fmt.Sprintf("seq %d", i),
				Message: fmt.Sprintf("missing sequence %d in 1..%d", i, len(seqSeen)),
			})
		}
	}

	return errs
}
