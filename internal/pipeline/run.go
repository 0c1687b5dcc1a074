package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/dedupe"
	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/importer"
	"github.com/atlas-finance/wisebook/internal/journal"
	"github.com/atlas-finance/wisebook/internal/model"
)

// run carries the state of one Run call.
type run struct {
	*Orchestrator
	report *model.Report
	log    *zap.Logger
	stage  model.Stage
	began  time.Time
}

// Run imports in. Row and batch problems end up in the report; the error is
// non-nil only for a *FatalError, in which case the report status is failed.
// A cancelled ctx stops the run between stages or batch commits and yields a
// partial report with a nil error.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*model.Report, error) {
	r := &run{
		Orchestrator: o,
		report: &model.Report{
			RunID:     id.NewRunID(),
			Source:    in.Source,
			StartedAt: o.now(),
		},
	}
	r.log = o.logger.With(zap.String("run_id", r.report.RunID), zap.String("source", in.Source))
	r.log.Info("import started")

	err := r.execute(ctx, in)
	r.finish(ctx, err)
	if err != nil && IsFatal(err) {
		return r.report, err
	}
	return r.report, nil
}

var errCancelled = errors.New("cancelled")

func (r *run) execute(ctx context.Context, in Input) error {
	// Parsing
	r.enter(model.StageParsing)
	if ctx.Err() != nil {
		return errCancelled
	}
	rows := in.Rows
	if in.Decode != nil {
		var err error
		if rows, err = in.Decode(); err != nil {
			return r.fatal(ensure(err, apperrors.ErrCorruptInput))
		}
	}
	r.log.Debug("rows decoded", zap.Int("rows", len(rows)))
	entries, err := r.parse(ctx, rows)
	if err != nil {
		return err
	}

	// Validating
	r.enter(model.StageValidating)
	if ctx.Err() != nil {
		return errCancelled
	}
	chart, err := r.chart.LoadChart(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return r.fatal(ensure(err, apperrors.ErrChartUnavailable))
	}
	if _, ok := chart.Resolve(r.opts.SuspenseAccount, r.opts.AllowSubAccounts); !ok {
		return r.fatal(fmt.Errorf("%w: suspense account %s is not in the chart", apperrors.ErrChartUnavailable, r.opts.SuspenseAccount))
	}
	entries, err = r.validate(ctx, chart, entries)
	if err != nil {
		return err
	}

	// Balancing
	r.enter(model.StageBalancing)
	if ctx.Err() != nil {
		return errCancelled
	}
	batches := r.balance(entries)

	// Deduplicating
	r.enter(model.StageDeduplicating)
	if ctx.Err() != nil {
		return errCancelled
	}
	release, err := r.lockPeriods(ctx, batches)
	if err != nil {
		return err
	}
	defer release()

	detector := dedupe.NewDetector(r.ledger, r.opts.DuplicateStrict)
	res, err := detector.Check(ctx, batches)
	if err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return r.fatal(ensure(err, apperrors.ErrLedgerUnavailable))
	}
	r.report.Add(res.Issues...)
	for _, b := range res.Rejected {
		r.report.Rejected += len(b.Rows())
		r.metrics.IncBatch("rejected")
	}

	// Committing
	r.enter(model.StageCommitting)
	for _, b := range res.Accepted {
		if ctx.Err() != nil {
			return errCancelled
		}
		ids, err := r.ledger.Commit(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return errCancelled
			}
			return r.fatal(ensure(err, apperrors.ErrLedgerUnavailable))
		}
		r.report.Committed = append(r.report.Committed, model.CommittedBatch{
			Reference: b.Key.Reference,
			Date:      b.Key.Date,
			Period:    b.Period(),
			EntryIDs:  ids,
		})
		r.report.Accepted += len(b.Rows())
		r.metrics.IncBatch("committed")
		r.log.Debug("journal committed", zap.String("journal", b.Key.String()), zap.Strings("ids", ids))
	}

	r.enter(model.StageDone)
	return nil
}

// parse turns rows into entries; rows that fail become issues.
func (r *run) parse(ctx context.Context, rows []model.RawRow) ([]model.CandidateEntry, error) {
	results, err := importer.NewParser(r.opts.Parse).Parse(ctx, rows)
	if err != nil {
		return nil, errCancelled
	}
	entries := make([]model.CandidateEntry, 0, len(results))
	for _, res := range results {
		if !res.OK() {
			r.report.Add(*res.Issue)
			r.report.Rejected++
			continue
		}
		entries = append(entries, *res.Entry)
	}
	return entries, nil
}

// validate checks entries against the chart on the parse worker pool. Entries
// with an error issue are dropped; issues keep row order.
func (r *run) validate(ctx context.Context, chart *accounts.Chart, entries []model.CandidateEntry) ([]model.CandidateEntry, error) {
	v := accounts.NewValidator(chart, accounts.Policy{
		AllowSubAccounts: r.opts.AllowSubAccounts,
		Warnings:         r.opts.AccountWarningPolicy,
	})

	issues := make([][]model.Issue, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := range entries {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			issues[i] = v.Validate(&entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		return nil, errCancelled
	}

	valid := make([]model.CandidateEntry, 0, len(entries))
	for i, e := range entries {
		r.report.Add(issues[i]...)
		if hasError(issues[i]) {
			r.report.Rejected++
			continue
		}
		valid = append(valid, e)
	}
	return valid, nil
}

// balance groups entries into journals and keeps the ones that balance.
func (r *run) balance(entries []model.CandidateEntry) []model.JournalBatch {
	b := journal.NewBalancer(journal.Policy{
		Tolerance:       r.opts.BalanceTolerance,
		Ceiling:         r.opts.AutoBalanceCeiling,
		SuspenseAccount: r.opts.SuspenseAccount,
	})

	var accepted []model.JournalBatch
	for _, batch := range journal.Group(entries) {
		out := b.Balance(batch)
		r.report.Add(out.Issues...)
		if !out.Accepted {
			r.report.Rejected += len(batch.Rows())
			r.metrics.IncBatch("rejected")
			continue
		}
		if len(out.Issues) > 0 {
			r.metrics.IncBatch("auto_balanced")
		}
		accepted = append(accepted, out.Batch)
	}
	return accepted
}

// lockPeriods takes the ledger lock of every period touched, in sorted order so
// concurrent runs cannot deadlock. The returned func releases them all.
func (r *run) lockPeriods(ctx context.Context, batches []model.JournalBatch) (func(), error) {
	seen := make(map[string]bool)
	var periods []string
	for _, b := range batches {
		if p := b.Period(); !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	sort.Strings(periods)

	var held []func()
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, p := range periods {
		unlock, err := r.ledger.LockPeriod(ctx, p)
		if err != nil {
			release()
			if ctx.Err() != nil {
				return nil, errCancelled
			}
			return nil, r.fatal(ensure(err, apperrors.ErrLockFailed))
		}
		held = append(held, unlock)
	}
	return release, nil
}

func (r *run) enter(stage model.Stage) {
	now := r.now()
	if r.stage != "" {
		r.metrics.ObserveStage(r.stage, now.Sub(r.began))
	}
	r.stage, r.began = stage, now
	r.report.Stage = stage
	r.log.Debug("stage", zap.String("stage", string(stage)))
}

func (r *run) fatal(err error) error {
	return &FatalError{Stage: r.stage, Err: err}
}

// finish stamps the outcome, records metrics and notifies. Notifier errors are logged only.
func (r *run) finish(ctx context.Context, err error) {
	rep := r.report
	switch {
	case err == nil:
		rep.Status = model.StatusCompleted
	case errors.Is(err, errCancelled):
		rep.Status = model.StatusPartial
	default:
		rep.Status = model.StatusFailed
		rep.Stage = model.StageFailed
		rep.Fatal = err.Error()
	}
	rep.FinishedAt = r.now()
	rep.Warned = rep.WarnedEntries()
	r.metrics.RecordReport(rep)

	fields := []zap.Field{
		zap.String("status", string(rep.Status)),
		zap.Int("accepted", rep.Accepted),
		zap.Int("rejected", rep.Rejected),
		zap.Int("warned", rep.Warned),
		zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)),
	}
	if rep.Status == model.StatusFailed {
		r.log.Error("import failed", append(fields, zap.Error(err))...)
	} else {
		r.log.Info("import finished", fields...)
	}

	if r.notifier == nil {
		return
	}
	if nerr := r.notifier.Notify(context.WithoutCancel(ctx), rep); nerr != nil {
		r.log.Warn("report notification failed", zap.Error(nerr))
	}
}

func (o *Orchestrator) workers() int {
	if o.opts.Parse.Workers > 0 {
		return o.opts.Parse.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ensure wraps err with sentinel unless it already carries an infrastructure sentinel.
func ensure(err, sentinel error) error {
	if apperrors.IsInfrastructure(err) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

func hasError(issues []model.Issue) bool {
	for _, is := range issues {
		if is.IsError() {
			return true
		}
	}
	return false
}
