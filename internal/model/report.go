package model

import (
	"time"

	"github.com/atlas-finance/wisebook/internal/money"
)

// Stage is a step of an import run.
type Stage string

const (
	StageParsing       Stage = "parsing"
	StageValidating    Stage = "validating"
	StageBalancing     Stage = "balancing"
	StageDeduplicating Stage = "deduplicating"
	StageCommitting    Stage = "committing"
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

// RunStatus summarizes how an import run ended.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusPartial   RunStatus = "partial" // cancelled after some batches were committed
	StatusFailed    RunStatus = "failed"  // infrastructure failure, the run did not finish
)

// CommittedBatch identifies a journal promoted to the ledger.
type CommittedBatch struct {
	Reference string    `json:"reference"`
	Date      time.Time `json:"date"`
	Period    string    `json:"period"`
	EntryIDs  []string  `json:"entry_ids"`
}

// Report is the outcome of one import run.
type Report struct {
	RunID      string           `json:"run_id"`
	Source     string           `json:"source"`
	Status     RunStatus        `json:"status"`
	Stage      Stage            `json:"stage"`
	Accepted   int              `json:"accepted"`
	Rejected   int              `json:"rejected"`
	Warned     int              `json:"warned"`
	Issues     []Issue          `json:"issues"`
	Committed  []CommittedBatch `json:"committed"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Fatal      string           `json:"fatal,omitempty"`
}

// Add appends issues in order.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if !i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// WarnedEntries counts the distinct rows carrying at least one warning. A
// warning with no row counts once per reference.
func (r *Report) WarnedEntries() int {
	rows := make(map[int]struct{})
	refs := make(map[string]struct{})
	for _, i := range r.Issues {
		if i.IsError() {
			continue
		}
		switch {
		case i.Row > 0:
			rows[i.Row] = struct{}{}
		case len(i.Rows) > 0:
			for _, row := range i.Rows {
				rows[row] = struct{}{}
			}
		default:
			refs[i.Reference] = struct{}{}
		}
	}
	return len(rows) + len(refs)
}

// CommittedIDs returns every committed entry ID in commit order.
func (r *Report) CommittedIDs() []string {
	var ids []string
	for _, c := range r.Committed {
		ids = append(ids, c.EntryIDs...)
	}
	return ids
}

// AcceptanceRate is accepted / (accepted + rejected).
func (r *Report) AcceptanceRate() money.Percentage {
	return money.Ratio(r.Accepted, r.Accepted+r.Rejected)
}
