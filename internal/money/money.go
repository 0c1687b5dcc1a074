package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when combining amounts of different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrPrecision is returned when an amount cannot be represented in whole minor units.
	ErrPrecision = errors.New("amount has more decimals than the currency allows")
	// ErrOverflow is returned when an amount does not fit in int64 minor units.
	ErrOverflow = errors.New("amount out of range")
	// ErrMalformed is returned for text that is not an amount.
	ErrMalformed = errors.New("malformed amount")
)

// zeroDecimalCurrencies have no minor unit (franc CFA and friends).
var zeroDecimalCurrencies = map[string]bool{
	"XOF": true,
	"XAF": true,
	"GNF": true,
	"KMF": true,
	"JPY": true,
	"KRW": true,
}

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// Exponent returns the number of decimal places of a currency's minor unit.
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// Money is an exact amount expressed in minor units of Currency.
type Money struct {
	Amount   int64
	Currency string
}

// New returns a Money of amount minor units.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return New(0, currency)
}

// FromDecimal converts a major-unit decimal ("1500.25") to Money. It never rounds.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	minor := d.Shift(Exponent(currency))
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("%s %s: %w", d.String(), strings.ToUpper(currency), ErrPrecision)
	}
	if minor.GreaterThan(maxAmount) || minor.LessThan(minAmount) {
		return Money{}, fmt.Errorf("%s: %w", d.String(), ErrOverflow)
	}
	return New(minor.IntPart(), currency), nil
}

// Format describes the separators used by an amount column.
type Format struct {
	Decimal   rune // '.' or ','
	Thousands rune // 0 when absent
}

// DefaultFormat is the plain "1234.56" notation.
var DefaultFormat = Format{Decimal: '.'}

// Parse reads a major-unit amount written in format f.
func Parse(s, currency string, f Format) (Money, error) {
	if f.Decimal == 0 {
		f.Decimal = '.'
	}
	raw := s
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return Money{}, fmt.Errorf("empty amount: %w", ErrMalformed)
	}
	if f.Thousands != 0 {
		s = strings.ReplaceAll(s, string(f.Thousands), "")
	}

	other := '.'
	if f.Decimal == '.' {
		other = ','
	}
	if strings.ContainsRune(s, other) {
		return Money{}, fmt.Errorf("%q uses %q but the decimal separator is %q: %w", raw, other, f.Decimal, ErrMalformed)
	}
	if f.Decimal != '.' {
		s = strings.ReplaceAll(s, string(f.Decimal), ".")
	}
	if strings.Count(s, ".") > 1 {
		return Money{}, fmt.Errorf("%q has more than one decimal separator: %w", raw, ErrMalformed)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%q: %w", raw, ErrMalformed)
	}
	return FromDecimal(d, currency)
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	sum := m.Amount + o.Amount
	if (o.Amount > 0 && sum < m.Amount) || (o.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	currency := m.Currency
	if currency == "" {
		currency = o.Currency
	}
	return Money{Amount: sum, Currency: currency}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if o.Amount == math.MinInt64 {
		return Money{}, ErrOverflow
	}
	return m.Add(o.Neg())
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Neg()
	}
	return m
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -Exponent(m.Currency))
}

// StringFixed formats the amount in major units without the currency code.
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(Exponent(m.Currency))
}

func (m Money) String() string {
	if m.Currency == "" {
		return m.StringFixed()
	}
	return m.StringFixed() + " " + m.Currency
}

func (m Money) sameCurrency(o Money) error {
	// A zero value without currency combines with anything.
	if m.Currency == o.Currency || (m.Currency == "" && m.Amount == 0) || (o.Currency == "" && o.Amount == 0) {
		return nil
	}
	return fmt.Errorf("%s vs %s: %w", m.Currency, o.Currency, ErrCurrencyMismatch)
}
