package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

func row(line int, date, ref, account, label, debit, credit string) model.RawRow {
	return rawRow(line, map[string]string{
		"date": date, "piece": ref, "compte": account, "libelle": label, "debit": debit, "credit": credit,
	})
}

func TestParseRow_Valid(t *testing.T) {
	p := NewParser(Options{Mapping: DefaultMapping()})

	res := p.ParseRow(row(2, "15/01/2025", "J1", "601", " Achat ", "1000", ""))
	require.True(t, res.OK(), "issue: %v", res.Issue)
	e := res.Entry
	assert.Equal(t, 2, e.Row)
	assert.Equal(t, "601", e.Account)
	assert.Equal(t, "Achat", e.Label)
	assert.Equal(t, money.New(1000, "XOF"), e.Debit)
	assert.True(t, e.Credit.IsZero())
	assert.Equal(t, "J1", e.Reference)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Equal(t, model.OriginImported, e.Origin)
}

func TestParseRow_Issues(t *testing.T) {
	p := NewParser(Options{Mapping: DefaultMapping()})

	tests := []struct {
		name string
		row  model.RawRow
		kind model.IssueKind
	}{
		{"missing account", row(2, "2025-01-15", "J1", "", "x", "10", ""), model.KindMissingField},
		{"missing date", row(3, "", "J1", "601", "x", "10", ""), model.KindMissingField},
		{"bad date", row(4, "2025-13-45", "J1", "601", "x", "10", ""), model.KindMissingField},
		{"not a number", row(5, "2025-01-15", "J1", "601", "x", "abc", ""), model.KindMalformedAmount},
		{"wrong separator", row(6, "2025-01-15", "J1", "601", "x", "10,5", ""), model.KindMalformedAmount},
		{"too many decimals", row(7, "2025-01-15", "J1", "601", "x", "10.5", ""), model.KindMalformedAmount},
		{"negative debit", row(8, "2025-01-15", "J1", "601", "x", "-10", ""), model.KindMalformedAmount},
		{"both sides", row(9, "2025-01-15", "J1", "601", "x", "10", "10"), model.KindMalformedAmount},
		{"neither side", row(10, "2025-01-15", "J1", "601", "x", "", "0"), model.KindMalformedAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.ParseRow(tt.row)
			require.False(t, res.OK())
			require.NotNil(t, res.Issue)
			assert.Equal(t, tt.kind, res.Issue.Kind)
			assert.Equal(t, tt.row.Line, res.Issue.Row)
			assert.Equal(t, tt.row.Line, res.Line)
			assert.True(t, res.Issue.IsError())
		})
	}
}

func TestParseRow_ReferenceFallsBackToBatch(t *testing.T) {
	p := NewParser(Options{Mapping: DefaultMapping()})

	r := row(2, "2025-01-15", "", "601", "x", "10", "")
	res := p.ParseRow(r)
	require.True(t, res.OK())
	assert.Equal(t, "batch", res.Entry.Reference)

	r.BatchID = ""
	res = p.ParseRow(r)
	require.False(t, res.OK())
	assert.Equal(t, model.KindMissingField, res.Issue.Kind)
}

func TestParseRow_CurrencyAndFormat(t *testing.T) {
	p := NewParser(Options{
		Mapping:  DefaultMapping(),
		Format:   money.Format{Decimal: ',', Thousands: '.'},
		Currency: "XOF",
	})

	r := row(2, "02.01.2025", "J1", "401", "x", "", "1.234,56")
	r.Named["devise"] = "eur"
	res := p.ParseRow(r)
	require.True(t, res.OK(), "issue: %v", res.Issue)
	assert.Equal(t, money.New(123456, "EUR"), res.Entry.Credit)
	assert.Equal(t, model.SideCredit, res.Entry.Side())
}

func TestParseRow_SignedAmountColumn(t *testing.T) {
	p := NewParser(Options{Mapping: Mapping{Account: "0", Amount: "1", Date: "2", Reference: "3"}})

	res := p.ParseRow(model.RawRow{Line: 1, Values: []string{"521", "-2500", "2025-01-16", "J2"}})
	require.True(t, res.OK(), "issue: %v", res.Issue)
	assert.Equal(t, money.New(2500, "XOF"), res.Entry.Credit)

	res = p.ParseRow(model.RawRow{Line: 2, Values: []string{"411", "2500", "2025-01-16", "J2"}})
	require.True(t, res.OK())
	assert.Equal(t, money.New(2500, "XOF"), res.Entry.Debit)

	res = p.ParseRow(model.RawRow{Line: 3, Values: []string{"411", "0", "2025-01-16", "J2"}})
	require.False(t, res.OK())
	assert.Equal(t, model.KindMalformedAmount, res.Issue.Kind)
}

func TestParse_PreservesOrder(t *testing.T) {
	p := NewParser(Options{Mapping: DefaultMapping(), Workers: 4})

	var rows []model.RawRow
	for i := 0; i < 200; i++ {
		debit := fmt.Sprint(i + 1)
		if i%7 == 0 {
			debit = "bad"
		}
		rows = append(rows, row(i+2, "2025-01-15", "J1", "601", "x", debit, ""))
	}

	results, err := p.Parse(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, results, len(rows))
	for i, res := range results {
		assert.Equal(t, i+2, res.Line)
		if i%7 == 0 {
			assert.False(t, res.OK())
		} else {
			require.True(t, res.OK())
			assert.Equal(t, int64(i+1), res.Entry.Debit.Amount)
		}
	}
}

func TestParse_Cancelled(t *testing.T) {
	p := NewParser(Options{Mapping: DefaultMapping()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Parse(ctx, []model.RawRow{row(2, "2025-01-15", "J1", "601", "x", "1", "")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_SampleFile(t *testing.T) {
	rows, err := DefaultRegistry().DecodeFile("../../testdata/journal_sample.csv")
	require.NoError(t, err)

	results, err := NewParser(Options{Mapping: DefaultMapping()}).Parse(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, res := range results {
		assert.True(t, res.OK(), "line %d: %v", res.Line, res.Issue)
	}
	assert.Equal(t, "Fournisseur Koné", results[1].Entry.Label)
	assert.Equal(t, "999", results[4].Entry.Account)
}
