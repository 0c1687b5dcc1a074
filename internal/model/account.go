package model

import "strconv"

// Side is the column an amount is posted to.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// NormalSide is the side an account's balance normally sits on.
type NormalSide string

const (
	NormalDebit  NormalSide = "debit"
	NormalCredit NormalSide = "credit"
	NormalEither NormalSide = "either" // mixed accounts (e.g. 47x, 58x)
)

// Account is one line of the SYSCOHADA chart of accounts.
type Account struct {
	Code   string
	Label  string
	Class  int // 1..9, first digit of Code
	Normal NormalSide
}

// ClassOf returns the SYSCOHADA class encoded by the first digit of code, or 0.
func ClassOf(code string) int {
	if code == "" {
		return 0
	}
	c, err := strconv.Atoi(code[:1])
	if err != nil {
		return 0
	}
	return c
}
