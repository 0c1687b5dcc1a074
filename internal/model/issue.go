package model

import "fmt"

// Severity of a validation issue. Warnings never block a commit.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueKind classifies validation issues.
type IssueKind string

const (
	KindMissingField    IssueKind = "missing-field"
	KindMalformedAmount IssueKind = "malformed-amount"
	KindUnknownAccount  IssueKind = "unknown-account"
	KindAccountSide     IssueKind = "account-side"
	KindUnbalanced      IssueKind = "unbalanced"
	KindDuplicate       IssueKind = "duplicate"
)

// Issue is one problem found while importing. Row is 0 for batch-level issues,
// which list their member rows in Rows instead.
type Issue struct {
	Severity  Severity  `json:"severity"`
	Kind      IssueKind `json:"kind"`
	Row       int       `json:"row,omitempty"`
	Rows      []int     `json:"rows,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Account   string    `json:"account,omitempty"`
	Message   string    `json:"message"`
}

// IsError reports whether the issue blocks commit.
func (i Issue) IsError() bool { return i.Severity == SeverityError }

func (i Issue) Error() string {
	if i.Row > 0 {
		return fmt.Sprintf("%s [row %d] %s: %s", i.Severity, i.Row, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Reference, i.Kind, i.Message)
}

// RowError builds an error-severity issue for one row.
func RowError(row int, kind IssueKind, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Kind: kind, Row: row, Message: fmt.Sprintf(format, args...)}
}

// RowWarning builds a warning-severity issue for one row.
func RowWarning(row int, kind IssueKind, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Kind: kind, Row: row, Message: fmt.Sprintf(format, args...)}
}

// ParseResult is the outcome of parsing one row: exactly one of Entry or Issue is set.
type ParseResult struct {
	Line  int
	Entry *CandidateEntry
	Issue *Issue
}

// OK reports whether the row parsed.
func (r ParseResult) OK() bool { return r.Entry != nil }
