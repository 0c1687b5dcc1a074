package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEntryID(t *testing.T) {
	tests := []struct {
		year, month, seq int
		want             string
	}{
		{2025, 1, 1, "2025-01-001"},
		{2025, 12, 99, "2025-12-099"},
		{2025, 1, 123, "2025-01-123"},
	}
	for _, tt := range tests {
		got := FormatEntryID(tt.year, tt.month, tt.seq)
		assert.Equal(t, tt.want, got)
	}
}

func TestForPeriod(t *testing.T) {
	got, err := ForPeriod("2025-03", 7)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-007", got)

	_, err = ForPeriod("March", 1)
	assert.Error(t, err)
}

func TestFormatLineID(t *testing.T) {
	tests := []struct {
		entryID string
		line    int
		want    string
	}{
		{"2025-01-001", 0, "2025-01-001a"},
		{"2025-01-001", 1, "2025-01-001b"},
		{"2025-01-001", 25, "2025-01-001z"},
		{"2025-01-001", 26, "2025-01-001aa"},
		{"2025-01-001", 27, "2025-01-001ab"},
	}
	for _, tt := range tests {
		got := FormatLineID(tt.entryID, tt.line)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.entryID, EntryGroup(got))
	}
}

func TestParseEntryID(t *testing.T) {
	tests := []struct {
		input               string
		wantYear, wantMonth int
		wantSeq             int
	}{
		{"2025-01-001", 2025, 1, 1},
		{"2025-12-099", 2025, 12, 99},
		{"2025-01-001a", 2025, 1, 1},
		{"2025-01-001b", 2025, 1, 1},
	}
	for _, tt := range tests {
		year, month, seq, err := ParseEntryID(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.wantYear, year)
		assert.Equal(t, tt.wantMonth, month)
		assert.Equal(t, tt.wantSeq, seq)
	}
}

func TestParseEntryID_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"not-valid",
		"2025-01",
		"xxxx-01-001",
	}
	for _, input := range badInputs {
		_, _, _, err := ParseEntryID(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestEntryGroup(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-01-001a", "2025-01-001"},
		{"2025-01-001b", "2025-01-001"},
		{"2025-01-001", "2025-01-001"},
		{"", ""},
	}
	for _, tt := range tests {
		got := EntryGroup(tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestGenerator(t *testing.T) {
	g, err := NewGenerator(1)
	require.NoError(t, err)

	a, b := g.Next(), g.Next()
	assert.Greater(t, b, a)

	_, err = NewGenerator(4096)
	assert.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	assert.Len(t, NewRunID(), 36)
	assert.NotEqual(t, NewRunID(), NewRunID())
}
