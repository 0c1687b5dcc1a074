package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrChartUnavailable indicates the chart of accounts could not be loaded.
var ErrChartUnavailable = errors.New("chart of accounts unavailable")

// ErrLedgerUnavailable indicates the ledger store could not be reached or written.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// ErrCorruptInput indicates an import file that could not be decoded at all.
var ErrCorruptInput = errors.New("corrupt import file")

// ErrLockFailed indicates a period lock could not be acquired.
var ErrLockFailed = errors.New("period lock failed")

// IsInfrastructure reports whether err is an infrastructure failure rather than
// a business-rule problem.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrChartUnavailable) ||
		errors.Is(err, ErrLedgerUnavailable) ||
		errors.Is(err, ErrCorruptInput) ||
		errors.Is(err, ErrLockFailed)
}
