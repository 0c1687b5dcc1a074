package journal

import (
	"fmt"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

// Policy controls how unbalanced journals are handled. Thresholds are in minor
// units of the batch currency (centimes for EUR, francs for XOF).
type Policy struct {
	Tolerance       int64 // differences up to this are rounding
	Ceiling         int64 // zero disables auto-balancing
	SuspenseAccount string
}

// Outcome is the result of balancing one batch. Batch includes any synthesized
// line. Accepted is false when an error issue was raised.
type Outcome struct {
	Batch    model.JournalBatch
	Issues   []model.Issue
	Accepted bool
}

// Balancer groups entries into journals and enforces debit/credit equality.
type Balancer struct {
	policy Policy
}

// NewBalancer returns a Balancer. An empty suspense account defaults to 471.
func NewBalancer(p Policy) *Balancer {
	if p.SuspenseAccount == "" {
		p.SuspenseAccount = "471"
	}
	return &Balancer{policy: p}
}

// Group collects entries by (reference, date) in first-seen order.
func Group(entries []model.CandidateEntry) []model.JournalBatch {
	index := make(map[model.BatchKey]int)
	var batches []model.JournalBatch
	for _, e := range entries {
		key := model.BatchKey{Reference: e.Reference, Date: e.Date}
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, model.JournalBatch{Key: key})
		}
		batches[i].Entries = append(batches[i].Entries, e)
	}
	return batches
}

// Balance checks one batch. Within tolerance or under the ceiling it adds a
// system-generated line to the suspense account so the batch balances exactly.
func (b *Balancer) Balance(batch model.JournalBatch) Outcome {
	debit, credit, err := batch.Totals()
	if err != nil {
		return reject(batch, "cannot total journal: %v", err)
	}

	diff, err := debit.Sub(credit)
	if err != nil {
		return reject(batch, "cannot total journal: %v", err)
	}
	if diff.IsZero() {
		return Outcome{Batch: batch, Accepted: true}
	}

	gap := diff.Abs()
	ceiling := b.policy.Ceiling

	switch {
	case gap.Amount <= b.policy.Tolerance:
		return b.settle(batch, diff, fmt.Sprintf("rounding difference of %s posted to %s", gap, b.policy.SuspenseAccount))
	case ceiling > 0 && gap.Amount <= ceiling:
		return b.settle(batch, diff, fmt.Sprintf("auto-balanced difference of %s to suspense account %s", gap, b.policy.SuspenseAccount))
	default:
		return reject(batch, "debits %s != credits %s (difference %s)", debit, credit, gap)
	}
}

// settle appends the balancing line on the lighter side.
func (b *Balancer) settle(batch model.JournalBatch, diff money.Money, msg string) Outcome {
	line := model.CandidateEntry{
		Account:   b.policy.SuspenseAccount,
		Label:     "Écart d'équilibrage " + batch.Key.Reference,
		Reference: batch.Key.Reference,
		Date:      batch.Key.Date,
		Origin:    model.OriginSystemGenerated,
		Debit:     money.Zero(diff.Currency),
		Credit:    money.Zero(diff.Currency),
	}
	if diff.IsNegative() {
		line.Debit = diff.Abs()
	} else {
		line.Credit = diff
	}

	issue := batchIssue(batch, model.SeverityWarning, msg)
	out := model.JournalBatch{Key: batch.Key, Entries: append(append([]model.CandidateEntry(nil), batch.Entries...), line)}
	return Outcome{Batch: out, Issues: []model.Issue{issue}, Accepted: true}
}

func reject(batch model.JournalBatch, format string, args ...any) Outcome {
	return Outcome{
		Batch:  batch,
		Issues: []model.Issue{batchIssue(batch, model.SeverityError, fmt.Sprintf(format, args...))},
	}
}

func batchIssue(batch model.JournalBatch, sev model.Severity, msg string) model.Issue {
	return model.Issue{
		Severity:  sev,
		Kind:      model.KindUnbalanced,
		Rows:      batch.Rows(),
		Reference: batch.Key.String(),
		Message:   msg,
	}
}
