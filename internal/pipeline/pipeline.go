package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/importer"
	"github.com/atlas-finance/wisebook/internal/metrics"
	"github.com/atlas-finance/wisebook/internal/model"
)

// ChartSource loads the chart of accounts for a run.
type ChartSource interface {
	LoadChart(ctx context.Context) (*accounts.Chart, error)
}

// Ledger is the persistence collaborator. Commit receives only balanced batches
// free of error issues. LockPeriod returns a release func.
type Ledger interface {
	Exists(ctx context.Context, fingerprint, period string) (bool, error)
	Commit(ctx context.Context, batch model.JournalBatch) ([]string, error)
	LockPeriod(ctx context.Context, period string) (func(), error)
}

// Notifier receives the final report of every run.
type Notifier interface {
	Notify(ctx context.Context, r *model.Report) error
}

// Options is the immutable policy of an Orchestrator.
type Options struct {
	Parse                importer.Options
	BalanceTolerance     int64 // minor units
	AutoBalanceCeiling   int64 // minor units, zero disables
	DuplicateStrict      bool
	AccountWarningPolicy accounts.WarningPolicy
	AllowSubAccounts     bool
	SuspenseAccount      string
}

// FatalError reports an infrastructure failure that stopped a run.
type FatalError struct {
	Stage model.Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("import failed while %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err means the run did not complete, as opposed to
// completing with issues.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Orchestrator sequences the import stages.
type Orchestrator struct {
	chart    ChartSource
	ledger   Ledger
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.ImportMetrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.ImportMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithNotifier sets the report sink.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator.
func New(chart ChartSource, ledger Ledger, opts Options, options ...Option) *Orchestrator {
	if opts.AccountWarningPolicy == "" {
		opts.AccountWarningPolicy = accounts.WarnOnSide
	}
	if opts.SuspenseAccount == "" {
		opts.SuspenseAccount = accounts.SuspenseAccount
	}
	o := &Orchestrator{
		chart:  chart,
		ledger: ledger,
		opts:   opts,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, fn := range options {
		fn(o)
	}
	return o
}

// Input is one file's worth of raw rows. When Decode is set it is called at
// the parsing stage and its rows replace Rows; a decode error fails the run
// with apperrors.ErrCorruptInput.
type Input struct {
	Source string
	Rows   []model.RawRow
	Decode func() ([]model.RawRow, error)
}
