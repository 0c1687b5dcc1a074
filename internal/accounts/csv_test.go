package accounts

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-finance/wisebook/internal/model"
)

func TestRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Code: "601", Label: "Achats de marchandises", Class: 6, Normal: model.NormalDebit},
		{Code: "401", Label: "Fournisseurs, dettes en compte", Class: 4, Normal: model.NormalCredit},
	}

	var buf bytes.Buffer
	err := WriteAccounts(&buf, accounts)
	require.NoError(t, err)

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, accounts, got)
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"non-numeric", []string{"60A", "x", "6", "debit"}},
		{"class zero", []string{"001", "x", "", "debit"}},
		{"class mismatch", []string{"601", "x", "7", "debit"}},
		{"bad side", []string{"601", "x", "6", "sideways"}},
		{"empty code", []string{"", "x", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalAccount(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalAccount_Defaults(t *testing.T) {
	acct, err := UnmarshalAccount([]string{" 471 ", "Compte d'attente", "", ""})
	require.NoError(t, err)
	assert.Equal(t, "471", acct.Code)
	assert.Equal(t, 4, acct.Class)
	assert.Equal(t, model.NormalEither, acct.Normal)
}

func TestReadAccounts_WrongFieldCount(t *testing.T) {
	_, err := ReadAccounts(strings.NewReader(Header + "\n601,Achats\n"))
	assert.Error(t, err)
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart("syscohada")
	require.NotEmpty(t, chart)

	codes := make(map[string]model.Account)
	for _, acct := range chart {
		codes[acct.Code] = acct
	}
	assert.Contains(t, codes, SuspenseAccount)
	assert.Contains(t, codes, "601")
	assert.Contains(t, codes, "401")
	assert.Contains(t, codes, "701")

	classes := make(map[int]bool)
	for _, acct := range chart {
		assert.NotEmpty(t, acct.Label, "account %s missing label", acct.Code)
		assert.Equal(t, model.ClassOf(acct.Code), acct.Class)
		classes[acct.Class] = true
	}
	for c := 1; c <= 9; c++ {
		assert.True(t, classes[c], "class %d missing", c)
	}
}

func TestDefaultChart_UnknownSystem(t *testing.T) {
	assert.Equal(t, DefaultChart("syscohada"), DefaultChart("unknown"))
	assert.Len(t, DefaultChart("syscohada_minimal"), 8)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 8)
	assert.Equal(t, DefaultChart("syscohada_minimal"), accounts)
}

func TestDefaultChartRoundTrip(t *testing.T) {
	chart := DefaultChart("syscohada")

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, chart))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, chart, got)
}
