package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atlas-finance/wisebook/internal/model"
)

// Header is the CSV header for chart-of-accounts.csv.
const Header = "code,label,class,normal_side"

const (
	numFields = 4
	colCode   = 0
	colLabel  = 1
	colClass  = 2
	colNormal = 3
)

// ReadAccounts reads chart-of-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colLabel] = acct.Label
	row[colClass] = strconv.Itoa(acct.Class)
	row[colNormal] = string(acct.Normal)
	return row
}

// UnmarshalAccount converts a CSV row to an Account. The class column must agree
// with the first digit of the code.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	code := strings.TrimSpace(record[colCode])
	if err := checkCode(code); err != nil {
		return model.Account{}, err
	}

	class := model.ClassOf(code)
	if s := strings.TrimSpace(record[colClass]); s != "" {
		c, err := strconv.Atoi(s)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing class %q: %w", s, err)
		}
		if c != class {
			return model.Account{}, fmt.Errorf("account %s: class %d does not match code", code, c)
		}
	}

	normal := model.NormalSide(strings.ToLower(strings.TrimSpace(record[colNormal])))
	switch normal {
	case model.NormalDebit, model.NormalCredit, model.NormalEither:
	case "":
		normal = model.NormalEither
	default:
		return model.Account{}, fmt.Errorf("account %s: unknown normal side %q", code, record[colNormal])
	}

	return model.Account{
		Code:   code,
		Label:  record[colLabel],
		Class:  class,
		Normal: normal,
	}, nil
}

// checkCode enforces SYSCOHADA code shape: digits only, class 1..9.
func checkCode(code string) error {
	if code == "" {
		return fmt.Errorf("empty account code")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("account code %q is not numeric", code)
		}
	}
	if c := model.ClassOf(code); c < 1 || c > 9 {
		return fmt.Errorf("account code %q: class must be 1-9", code)
	}
	return nil
}
