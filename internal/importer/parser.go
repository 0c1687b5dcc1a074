package importer

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

// DefaultDateLayouts are tried in order when Options.DateLayouts is empty.
var DefaultDateLayouts = []string{"2006-01-02", "02/01/2006", "02.01.2006"}

// Mapping names the source column of each field. A name that is a number
// addresses the cell by zero-based position instead of by header.
type Mapping struct {
	Account   string `yaml:"account"`
	Label     string `yaml:"label"`
	Debit     string `yaml:"debit"`
	Credit    string `yaml:"credit"`
	Amount    string `yaml:"amount,omitempty"` // signed single column: positive debit, negative credit
	Reference string `yaml:"reference"`
	Date      string `yaml:"date"`
	Currency  string `yaml:"currency,omitempty"`
}

// DefaultMapping matches the column names of WiseBook journal exports.
func DefaultMapping() Mapping {
	return Mapping{
		Account:   "compte",
		Label:     "libelle",
		Debit:     "debit",
		Credit:    "credit",
		Reference: "piece",
		Date:      "date",
		Currency:  "devise",
	}
}

// signed reports whether amounts come from a single signed column.
func (m Mapping) signed() bool {
	return m.Amount != "" && m.Debit == "" && m.Credit == ""
}

// Options configure a Parser.
type Options struct {
	Mapping     Mapping
	DateLayouts []string
	Format      money.Format
	Currency    string
	Workers     int // 0 means GOMAXPROCS
}

// Parser turns raw rows into candidate entries.
type Parser struct {
	opts Options
}

// NewParser returns a Parser with defaults filled in.
func NewParser(opts Options) *Parser {
	if len(opts.DateLayouts) == 0 {
		opts.DateLayouts = DefaultDateLayouts
	}
	if opts.Format.Decimal == 0 {
		opts.Format = money.DefaultFormat
	}
	if opts.Currency == "" {
		opts.Currency = "XOF"
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Parser{opts: opts}
}

// Parse parses rows on a bounded worker pool. Results are in input order, one
// per row. The only error is the context's.
func (p *Parser) Parse(ctx context.Context, rows []model.RawRow) ([]model.ParseResult, error) {
	results := make([]model.ParseResult, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.ParseRow(rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseRow parses one row. It reports the first problem found.
func (p *Parser) ParseRow(row model.RawRow) model.ParseResult {
	m := p.opts.Mapping
	fail := func(kind model.IssueKind, format string, args ...any) model.ParseResult {
		is := model.RowError(row.Line, kind, format, args...)
		return model.ParseResult{Line: row.Line, Issue: &is}
	}

	account := strings.TrimSpace(cell(row, m.Account))
	if account == "" {
		return fail(model.KindMissingField, "account is empty")
	}

	rawDate := strings.TrimSpace(cell(row, m.Date))
	if rawDate == "" {
		return fail(model.KindMissingField, "date is empty")
	}
	date, ok := p.parseDate(rawDate)
	if !ok {
		return fail(model.KindMissingField, "unparsable date %q", rawDate)
	}

	ref := strings.TrimSpace(cell(row, m.Reference))
	if ref == "" {
		ref = row.BatchID
	}
	if ref == "" {
		return fail(model.KindMissingField, "reference is empty")
	}

	currency := p.opts.Currency
	if c := strings.TrimSpace(cell(row, m.Currency)); c != "" {
		currency = strings.ToUpper(c)
	}

	entry := model.CandidateEntry{
		Row:       row.Line,
		Account:   account,
		Label:     strings.TrimSpace(cell(row, m.Label)),
		Reference: ref,
		Date:      date,
		Origin:    model.OriginImported,
		Debit:     money.Zero(currency),
		Credit:    money.Zero(currency),
	}

	if m.signed() {
		amt, err := p.amount(cell(row, m.Amount), currency)
		if err != nil {
			return fail(model.KindMalformedAmount, "amount: %v", err)
		}
		switch {
		case amt.IsZero():
			return fail(model.KindMalformedAmount, "amount is zero")
		case amt.IsNegative():
			entry.Credit = amt.Neg()
		default:
			entry.Debit = amt
		}
	} else {
		debit, err := p.amount(cell(row, m.Debit), currency)
		if err != nil {
			return fail(model.KindMalformedAmount, "debit: %v", err)
		}
		credit, err := p.amount(cell(row, m.Credit), currency)
		if err != nil {
			return fail(model.KindMalformedAmount, "credit: %v", err)
		}
		if debit.IsNegative() || credit.IsNegative() {
			return fail(model.KindMalformedAmount, "negative amount in debit/credit column")
		}
		entry.Debit, entry.Credit = debit, credit
	}

	if err := entry.Validate(); err != nil {
		return fail(model.KindMalformedAmount, "%v", err)
	}
	return model.ParseResult{Line: row.Line, Entry: &entry}
}

// amount parses a cell; an empty cell is zero.
func (p *Parser) amount(s, currency string) (money.Money, error) {
	if strings.TrimSpace(s) == "" {
		return money.Zero(currency), nil
	}
	m, err := money.Parse(s, currency, p.opts.Format)
	if err != nil {
		if errors.Is(err, money.ErrPrecision) || errors.Is(err, money.ErrOverflow) || errors.Is(err, money.ErrMalformed) {
			return money.Money{}, err
		}
		return money.Money{}, errors.Join(money.ErrMalformed, err)
	}
	return m, nil
}

func (p *Parser) parseDate(s string) (time.Time, bool) {
	for _, layout := range p.opts.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cell looks up a mapped column by header key, then by position.
func cell(row model.RawRow, name string) string {
	if name == "" {
		return ""
	}
	if v, ok := row.Named[headerKey(name)]; ok {
		return v
	}
	if idx, err := strconv.Atoi(name); err == nil && idx >= 0 && idx < len(row.Values) {
		return row.Values[idx]
	}
	return ""
}

// headerKey folds a column name: trimmed, lowercased, accents removed ("Libellé " -> "libelle").
func headerKey(s string) string {
	// Chains hold state; build one per call so parse workers can share the mapping.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func headerKeys(rec []string) []string {
	keys := make([]string, len(rec))
	for i, h := range rec {
		keys[i] = headerKey(h)
	}
	return keys
}
