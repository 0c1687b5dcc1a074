package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/gitops"
	"github.com/atlas-finance/wisebook/internal/id"
	"github.com/atlas-finance/wisebook/internal/importer"
	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/pipeline"
	"github.com/atlas-finance/wisebook/internal/runlog"
)

type importOptions struct {
	strict  bool
	verbose bool
}

func newImportCommand(flags *globalFlags) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import journal files (defaults to everything in import/)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()
			return runImport(cmd.Context(), a, args, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject journals containing duplicates")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print warnings as well as errors")

	return cmd
}

type importFile struct {
	name   string
	path   string
	queued bool // lives in import/ and moves to processed/ when done
}

func runImport(ctx context.Context, a *app, args []string, opts importOptions, out io.Writer) error {
	registry := a.cfg.Registry()

	var files []importFile
	if len(args) == 0 {
		found, err := registry.Scan(a.root)
		if err != nil {
			return err
		}
		for _, f := range found {
			files = append(files, importFile{name: f.Name, path: f.Path, queued: true})
		}
	}
	for _, arg := range args {
		files = append(files, importFile{name: filepath.Base(arg), path: arg})
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to import.")
		return nil
	}

	popts := a.cfg.PipelineOptions()
	if opts.strict {
		popts.DuplicateStrict = true
	}
	orch := a.orchestrator(popts)

	failed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := importOne(ctx, a, orch, registry, f, opts, out); err != nil {
			failed++
			a.logger.Error("import failed", zap.String("file", f.name), zap.Error(err))
			fmt.Fprintf(out, "%s: %v\n", f.name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errImportsFailed, failed, len(files))
	}
	return nil
}

func importOne(ctx context.Context, a *app, orch *pipeline.Orchestrator, registry *importer.Registry, f importFile, opts importOptions, out io.Writer) error {
	report, runErr := orch.Run(ctx, pipeline.Input{
		Source: f.name,
		Decode: func() ([]model.RawRow, error) { return registry.DecodeFile(f.path) },
	})
	if report == nil {
		return runErr
	}
	printReport(out, report, opts.verbose)

	if report.Status == model.StatusCompleted && f.queued {
		if err := importer.MarkProcessed(a.root, f.name); err != nil {
			a.logger.Warn("could not move file to processed", zap.String("file", f.name), zap.Error(err))
		}
	}

	entry := runlog.FromReport(report)
	if a.cfg.Git.AutoCommit && gitops.IsRepo(a.root) && report.Status != model.StatusFailed {
		hash, err := commitImport(ctx, a, f.name, report)
		switch {
		case errors.Is(err, gitops.ErrNothingToCommit):
		case err != nil:
			a.logger.Warn("git commit failed", zap.Error(err))
		default:
			entry.CommitHash = hash
		}
	}
	if err := runlog.Append(a.root, []runlog.Entry{entry}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write import log: %v\n", err)
	}
	return runErr
}

func commitImport(ctx context.Context, a *app, name string, report *model.Report) (string, error) {
	msg := fmt.Sprintf("import: %s (%d accepted, %d rejected)", name, report.Accepted, report.Rejected)
	author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
	paths := []string{"import", reportsDir, "logs"}
	if a.fileLedger() {
		for _, c := range report.Committed {
			paths = append(paths, filepath.Join(c.Period[:4], c.Period[5:]))
		}
	}
	return gitops.CommitAll(ctx, a.root, msg, author, paths...)
}

func printReport(out io.Writer, r *model.Report, verbose bool) {
	fmt.Fprintf(out, "%s: %s, %d accepted, %d rejected, %d warned (%s)\n",
		r.Source, r.Status, r.Accepted, r.Rejected, r.Warned, r.AcceptanceRate())
	for _, c := range r.Committed {
		if len(c.EntryIDs) > 0 {
			fmt.Fprintf(out, "  committed %s %s -> %s\n", c.Reference, c.Date.Format("2006-01-02"), id.EntryGroup(c.EntryIDs[0]))
		}
	}
	for _, issue := range r.Issues {
		if issue.IsError() || verbose {
			fmt.Fprintf(out, "  %s\n", issue.Error())
		}
	}
	if r.Fatal != "" {
		fmt.Fprintf(out, "  fatal: %s\n", r.Fatal)
	}
}
