package commands

import (
	"github.com/spf13/cobra"

	"github.com/atlas-finance/wisebook/internal/buildinfo"
)

type globalFlags struct {
	repo      string
	logLevel  string
	logFormat string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:     "wisebook",
		Short:   "SYSCOHADA journal imports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.repo, "repo", ".", "ledger directory")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console or json (overrides config)")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(flags),
		newServeCommand(flags),
		newMigrateCommand(flags),
		newSchemaCommand(),
	)

	return rootCmd
}
