package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport_IssuesBySeverity(t *testing.T) {
	var r Report
	r.Add(
		RowError(2, KindMissingField, "missing %s", "date"),
		RowWarning(3, KindDuplicate, "possible duplicate"),
		Issue{Severity: SeverityError, Kind: KindUnbalanced, Reference: "J1", Rows: []int{4, 5}, Message: "debits != credits"},
	)

	assert.Len(t, r.Errors(), 2)
	assert.Len(t, r.Warnings(), 1)
	assert.Equal(t, "missing date", r.Issues[0].Message)
	assert.Equal(t, "error [row 2] missing-field: missing date", r.Issues[0].Error())
	assert.Equal(t, "error [J1] unbalanced: debits != credits", r.Issues[2].Error())
}

func TestReport_CommittedIDsAndRate(t *testing.T) {
	r := Report{
		Accepted: 3,
		Rejected: 1,
		Committed: []CommittedBatch{
			{Reference: "J1", EntryIDs: []string{"a", "b"}},
			{Reference: "J2", EntryIDs: []string{"c"}},
		},
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.CommittedIDs())
	assert.Equal(t, "75.00%", r.AcceptanceRate().String())
}

func TestReport_WarnedEntriesCountsRowsOnce(t *testing.T) {
	var r Report
	r.Add(
		RowWarning(2, KindAccountSide, "601 credited"),
		RowWarning(2, KindDuplicate, "possible duplicate"),
		RowWarning(3, KindDuplicate, "possible duplicate"),
		Issue{Severity: SeverityWarning, Kind: KindUnbalanced, Reference: "J1@2025-01-15", Rows: []int{3, 4}, Message: "auto-balanced"},
		RowError(5, KindUnknownAccount, "999 not in chart"),
		Issue{Severity: SeverityWarning, Kind: KindDuplicate, Reference: "J7", Message: "journal seen before"},
	)

	assert.Len(t, r.Warnings(), 5)
	assert.Equal(t, 4, r.WarnedEntries(), "rows 2, 3, 4 and reference J7")
}
