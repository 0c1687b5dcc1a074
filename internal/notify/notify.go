package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/model"
)

// Sink receives reports.
type Sink interface {
	Notify(ctx context.Context, r *model.Report) error
}

// LogSink writes a one-line summary of each report to a logger.
type LogSink struct {
	Logger *zap.Logger
}

// Notify implements Sink.
func (s LogSink) Notify(_ context.Context, r *model.Report) error {
	if s.Logger == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.String("source", r.Source),
		zap.String("status", string(r.Status)),
		zap.Int("accepted", r.Accepted),
		zap.Int("rejected", r.Rejected),
		zap.Int("warned", r.Warned),
		zap.Stringer("acceptance", r.AcceptanceRate()),
	}
	if r.Status == model.StatusFailed {
		s.Logger.Error("import report", append(fields, zap.String("fatal", r.Fatal))...)
		return nil
	}
	s.Logger.Info("import report", fields...)
	return nil
}

// FileSink writes each report as indented JSON to <Dir>/<run id>.json.
type FileSink struct {
	Dir string
}

// Path returns the file a report is written to.
func (s FileSink) Path(r *model.Report) string {
	return filepath.Join(s.Dir, r.RunID+".json")
}

// Notify implements Sink.
func (s FileSink) Notify(ctx context.Context, r *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating reports dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	tmp := s.Path(r) + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, s.Path(r)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Multi fans a report out to every sink and joins their errors.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(ctx context.Context, r *model.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
