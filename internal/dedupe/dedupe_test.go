package dedupe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Exists(ctx context.Context, fp, period string) (bool, error) {
	args := m.Called(ctx, fp, period)
	return args.Bool(0), args.Error(1)
}

var jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func entry(row int, account, label string, debit, credit int64) model.CandidateEntry {
	return model.CandidateEntry{
		Row:       row,
		Account:   account,
		Label:     label,
		Debit:     money.New(debit, "XOF"),
		Credit:    money.New(credit, "XOF"),
		Reference: "J1",
		Date:      jan15,
		Origin:    model.OriginImported,
	}
}

func batch(entries ...model.CandidateEntry) model.JournalBatch {
	return model.JournalBatch{Key: model.BatchKey{Reference: entries[0].Reference, Date: entries[0].Date}, Entries: entries}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "achat marchandises cote d'ivoire", NormalizeLabel("  Achat   Marchandises\tCôte d'Ivoire "))
	assert.Equal(t, "", NormalizeLabel("   "))
}

func TestFingerprint(t *testing.T) {
	a := entry(2, "601", "Achat Élec", 1000, 0)
	b := entry(9, "601", "  achat elec", 1000, 0)
	assert.Equal(t, Fingerprint(a), Fingerprint(b), "row number and label noise do not matter")
	assert.Len(t, Fingerprint(a), 64)

	c := entry(2, "601", "Achat Élec", 0, 1000)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c), "side matters")

	d := entry(2, "601", "Achat Élec", 1001, 0)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d), "amount matters")
}

func TestCheck_NoDuplicates(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("Exists", mock.Anything, mock.Anything, "2025-01").Return(false, nil)

	res, err := NewDetector(lookup, false).Check(context.Background(), []model.JournalBatch{
		batch(entry(2, "601", "Achat", 1000, 0), entry(3, "401", "Achat", 0, 1000)),
	})
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 1)
	assert.Empty(t, res.Issues)
	lookup.AssertNumberOfCalls(t, "Exists", 2)
}

func TestCheck_LedgerDuplicateWarns(t *testing.T) {
	dup := entry(2, "601", "Achat", 1000, 0)
	lookup := &mockLookup{}
	lookup.On("Exists", mock.Anything, Fingerprint(dup), "2025-01").Return(true, nil)
	lookup.On("Exists", mock.Anything, mock.Anything, "2025-01").Return(false, nil)

	res, err := NewDetector(lookup, false).Check(context.Background(), []model.JournalBatch{
		batch(dup, entry(3, "401", "Achat", 0, 1000)),
	})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, model.SeverityWarning, res.Issues[0].Severity)
	assert.Equal(t, model.KindDuplicate, res.Issues[0].Kind)
	assert.Equal(t, 2, res.Issues[0].Row)
}

func TestCheck_InRunDuplicate(t *testing.T) {
	b1 := batch(entry(2, "601", "Achat", 1000, 0), entry(3, "401", "Achat", 0, 1000))
	b2 := batch(entry(4, "601", "ACHAT", 1000, 0), entry(5, "401", "achat ", 0, 1000))
	b2.Key.Reference = "J2"

	res, err := NewDetector(nil, false).Check(context.Background(), []model.JournalBatch{b1, b2})
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 2)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, 4, res.Issues[0].Row)
	assert.Contains(t, res.Issues[0].Message, "row 2")
	assert.Equal(t, 5, res.Issues[1].Row)
}

func TestCheck_StrictRejectsWholeBatch(t *testing.T) {
	b1 := batch(entry(2, "601", "Achat", 1000, 0), entry(3, "401", "Achat", 0, 1000))
	b2 := batch(entry(4, "601", "Achat", 1000, 0), entry(5, "401", "Autre", 0, 1000))
	b2.Key.Reference = "J2"

	res, err := NewDetector(nil, true).Check(context.Background(), []model.JournalBatch{b1, b2})
	require.NoError(t, err)
	require.Len(t, res.Accepted, 1)
	require.Len(t, res.Rejected, 1)
	require.Len(t, res.Issues, 1)
	is := res.Issues[0]
	assert.True(t, is.IsError())
	assert.Equal(t, []int{4, 5}, is.Rows)
	assert.Contains(t, is.Message, "4")
}

func TestCheck_SkipsSystemGenerated(t *testing.T) {
	s1 := entry(0, "471", "Écart", 0, 100)
	s1.Origin = model.OriginSystemGenerated
	s2 := s1
	b2 := batch(s2)
	b2.Key.Reference = "J2"

	res, err := NewDetector(nil, true).Check(context.Background(), []model.JournalBatch{batch(s1), b2})
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 2)
	assert.Empty(t, res.Issues)
}

func TestCheck_LookupFailure(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("Exists", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))

	_, err := NewDetector(lookup, false).Check(context.Background(), []model.JournalBatch{
		batch(entry(2, "601", "Achat", 1000, 0)),
	})
	assert.ErrorIs(t, err, apperrors.ErrLedgerUnavailable)
}
