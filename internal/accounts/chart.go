package accounts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
)

// ChartPath is the chart location relative to a ledger root.
const ChartPath = "accounts/chart-of-accounts.csv"

// Chart provides in-memory lookup over the chart of accounts.
type Chart struct {
	accounts []model.Account
	byCode   map[string]model.Account
}

// NewChart creates a Chart from a slice of accounts.
func NewChart(accounts []model.Account) *Chart {
	byCode := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	return &Chart{accounts: accounts, byCode: byCode}
}

// Load reads chart-of-accounts.csv from a ledger root and returns a Chart.
func Load(root string) (*Chart, error) {
	path := filepath.Join(root, ChartPath)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	if len(accts) == 0 {
		return nil, fmt.Errorf("chart of accounts %s is empty", path)
	}
	return NewChart(accts), nil
}

// All returns all accounts.
func (c *Chart) All() []model.Account {
	return c.accounts
}

// Len returns the number of accounts.
func (c *Chart) Len() int {
	return len(c.accounts)
}

// Get returns an account by exact code.
func (c *Chart) Get(code string) (model.Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// Exists reports whether a code is in the chart.
func (c *Chart) Exists(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Resolve finds code, or with subAccounts the longest chart code that prefixes it
// ("601100" resolves to "601").
func (c *Chart) Resolve(code string, subAccounts bool) (model.Account, bool) {
	if a, ok := c.byCode[code]; ok {
		return a, true
	}
	if !subAccounts {
		return model.Account{}, false
	}
	for i := len(code) - 1; i >= 2; i-- {
		if a, ok := c.byCode[code[:i]]; ok {
			return a, true
		}
	}
	return model.Account{}, false
}

// ByClass returns all accounts of a SYSCOHADA class.
func (c *Chart) ByClass(class int) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.Class == class {
			result = append(result, a)
		}
	}
	return result
}

// Codes returns all codes sorted.
func (c *Chart) Codes() []string {
	codes := make([]string, 0, len(c.byCode))
	for code := range c.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Save writes the chart of accounts to accounts/chart-of-accounts.csv.
func (c *Chart) Save(root string) error {
	dir := filepath.Join(root, filepath.Dir(ChartPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(filepath.Join(root, ChartPath))
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, c.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}

// FileSource loads the chart from a ledger root once per call.
type FileSource struct {
	Root string
}

// LoadChart implements the pipeline chart source.
func (s FileSource) LoadChart(ctx context.Context) (*Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chart, err := Load(s.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrChartUnavailable, err)
	}
	return chart, nil
}

// StaticSource serves a chart already in memory.
type StaticSource struct {
	Chart *Chart
}

// LoadChart implements the pipeline chart source.
func (s StaticSource) LoadChart(context.Context) (*Chart, error) {
	if s.Chart == nil || s.Chart.Len() == 0 {
		return nil, apperrors.ErrChartUnavailable
	}
	return s.Chart, nil
}

// normalizeCode strips the separators some exports put in account numbers ("601 100", "601.100").
func normalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}
