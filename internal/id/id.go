package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// FormatEntryID returns an entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ForPeriod returns the entry ID of seq within a "2006-01" period.
func ForPeriod(period string, seq int) (string, error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return "", fmt.Errorf("invalid period %q: %w", period, err)
	}
	return FormatEntryID(t.Year(), int(t.Month()), seq), nil
}

// FormatLineID returns a line ID like "2025-01-001a". Lines past 'z' continue
// with two letters ("aa", "ab", ...).
func FormatLineID(entryID string, line int) string {
	var suffix []byte
	for n := line + 1; n > 0; n = (n - 1) / 26 {
		suffix = append([]byte{byte('a' + (n-1)%26)}, suffix...)
	}
	return entryID + string(suffix)
}

// ParseEntryID parses "2025-01-001" into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	// Strip any line suffix (trailing lowercase letters).
	base := EntryGroup(id)

	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q: %w", id, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// EntryGroup strips the line suffix from a line ID.
// "2025-01-001a" -> "2025-01-001"
func EntryGroup(lineID string) string {
	if len(lineID) == 0 {
		return ""
	}
	i := len(lineID)
	for i > 0 && lineID[i-1] >= 'a' && lineID[i-1] <= 'z' {
		i--
	}
	return lineID[:i]
}

// NewRunID returns a random identifier for an import run.
func NewRunID() string {
	return uuid.NewString()
}

// Generator issues time-ordered snowflake IDs for database-backed ledgers.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator returns a Generator for node (0-1023).
func NewGenerator(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// Next returns a new ID.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
