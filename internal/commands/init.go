package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atlas-finance/wisebook/internal/accounts"
	"github.com/atlas-finance/wisebook/internal/config"
	"github.com/atlas-finance/wisebook/internal/gitops"
)

type initOptions struct {
	name     string
	chart    string
	currency string
	noGit    bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.chart, "chart", "syscohada", "chart of accounts: syscohada or syscohada_minimal")
	cmd.Flags().StringVar(&opts.currency, "currency", "XOF", "default currency")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(ctx context.Context, dir string, opts initOptions) error {
	dirs := []string{
		"accounts",
		"logs",
		reportsDir,
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(opts.name)
	cfg.Business.ChartSystem = opts.chart
	cfg.Import.Currency = opts.currency
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chart := accounts.NewChart(accounts.DefaultChart(opts.chart))
	if err := chart.Save(dir); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := ".env\n.lock\n*.tmp\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	for _, keep := range []string{"import", "logs", reportsDir} {
		if err := os.WriteFile(filepath.Join(dir, keep, ".gitkeep"), []byte{}, 0o644); err != nil {
			return fmt.Errorf("writing .gitkeep: %w", err)
		}
	}

	if opts.noGit || !gitops.Available() {
		fmt.Printf("Initialized ledger at %s\n", dir)
		return nil
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	hash, err := gitops.CommitAll(ctx, dir, "init: Initialize "+opts.name, author)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Printf("Initialized ledger at %s (%s)\n", dir, hash)
	return nil
}
