package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/atlas-finance/wisebook/internal/server"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of import reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(server.ReportSchema())
		},
	}
}
