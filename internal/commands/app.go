package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/config"
	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/journal"
	"github.com/atlas-finance/wisebook/internal/logging"
	"github.com/atlas-finance/wisebook/internal/metrics"
	"github.com/atlas-finance/wisebook/internal/notify"
	"github.com/atlas-finance/wisebook/internal/pgstore"
	"github.com/atlas-finance/wisebook/internal/pipeline"
)

// app holds what every command needs from a ledger directory.
type app struct {
	root   string
	cfg    *config.Config
	logger *zap.Logger
	ledger pipeline.Ledger
	close  func()
}

// fileLedger reports whether the ledger lives in the directory, so git commits cover it.
func (a *app) fileLedger() bool {
	_, ok := a.ledger.(*journal.FileStore)
	return ok
}

func loadApp(ctx context.Context, flags *globalFlags) (*app, error) {
	root, err := filepath.Abs(flags.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, root); err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{root: root, cfg: cfg, logger: logger, close: func() { _ = logger.Sync() }}
	if cfg.Database.URL == "" {
		a.ledger = journal.NewFileStore(root)
		return a, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	gen, err := id.NewGenerator(cfg.Database.Node)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.ledger = pgstore.New(pool, gen)
	a.close = func() {
		pool.Close()
		_ = logger.Sync()
	}
	logger.Debug("using postgres ledger")
	return a, nil
}

// orchestrator wires the pipeline with report sinks under <root>/reports.
func (a *app) orchestrator(opts pipeline.Options) *pipeline.Orchestrator {
	return pipeline.New(
		accounts.FileSource{Root: a.root},
		a.ledger,
		opts,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(metrics.Import()),
		pipeline.WithNotifier(notify.Multi{
			notify.FileSink{Dir: filepath.Join(a.root, reportsDir)},
			notify.LogSink{Logger: a.logger},
		}),
	)
}

const reportsDir = "reports"

var errImportsFailed = errors.New("some imports failed")
