package accounts

import (
	"fmt"

	"github.com/schollz/closestmatch"

	"github.com/atlas-finance/wisebook/internal/model"
)

// WarningPolicy controls how normal-side mismatches are reported.
type WarningPolicy string

const (
	WarnOnSide   WarningPolicy = "warn"
	IgnoreOnSide WarningPolicy = "ignore"
)

// Policy configures a Validator.
type Policy struct {
	AllowSubAccounts bool
	Warnings         WarningPolicy
}

// Validator checks candidate entries against a chart of accounts.
type Validator struct {
	chart   *Chart
	policy  Policy
	matcher *closestmatch.ClosestMatch
}

// NewValidator builds a Validator over chart.
func NewValidator(chart *Chart, policy Policy) *Validator {
	if policy.Warnings == "" {
		policy.Warnings = WarnOnSide
	}
	return &Validator{
		chart:   chart,
		policy:  policy,
		matcher: closestmatch.New(chart.Codes(), []int{2, 3}),
	}
}

// Validate returns the issues found for one entry, errors first. The entry's
// Account is rewritten to its normalized form.
func (v *Validator) Validate(e *model.CandidateEntry) []model.Issue {
	code := normalizeCode(e.Account)
	e.Account = code

	if err := checkCode(code); err != nil {
		is := model.RowError(e.Row, model.KindUnknownAccount, "%v", err)
		is.Account = code
		return []model.Issue{is}
	}

	acct, ok := v.chart.Resolve(code, v.policy.AllowSubAccounts)
	if !ok {
		msg := fmt.Sprintf("account %s is not in the chart of accounts", code)
		if s := v.Suggest(code); s != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", s)
		}
		is := model.RowError(e.Row, model.KindUnknownAccount, "%s", msg)
		is.Account = code
		return []model.Issue{is}
	}

	if v.policy.Warnings == IgnoreOnSide || acct.Normal == model.NormalEither {
		return nil
	}
	if string(e.Side()) != string(acct.Normal) {
		is := model.RowWarning(e.Row, model.KindAccountSide,
			"%s posted on %s side, %s %q is normally %s", e.Amount(), e.Side(), acct.Code, acct.Label, acct.Normal)
		is.Account = code
		return []model.Issue{is}
	}
	return nil
}

// Suggest returns the closest chart code to code, or "".
func (v *Validator) Suggest(code string) string {
	if v.chart.Len() == 0 {
		return ""
	}
	return v.matcher.Closest(code)
}
