package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage is a ratio expressed in percent ("12.5" means 12.5%).
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage parses "12.5" or "12.5%".
func NewPercentage(s string) (Percentage, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Percentage{}, fmt.Errorf("parsing percentage %q: %w", s, err)
	}
	return Percentage{value: d}, nil
}

// Ratio returns part/whole in percent, rounded to two places. A zero whole yields 0%.
func Ratio(part, whole int) Percentage {
	if whole == 0 {
		return Percentage{}
	}
	v := decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(whole)), 2)
	return Percentage{value: v}
}

// Decimal returns the percent value.
func (p Percentage) Decimal() decimal.Decimal { return p.value }

// Of applies the percentage to m. It fails rather than round to a partial minor unit.
func (p Percentage) Of(m Money) (Money, error) {
	minor := decimal.NewFromInt(m.Amount).Mul(p.value).Div(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("%s of %s: %w", p, m, ErrPrecision)
	}
	return Money{Amount: minor.IntPart(), Currency: m.Currency}, nil
}

func (p Percentage) String() string {
	return p.value.StringFixed(2) + "%"
}

// MarshalText implements encoding.TextMarshaler.
func (p Percentage) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Percentage) UnmarshalText(b []byte) error {
	v, err := NewPercentage(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
