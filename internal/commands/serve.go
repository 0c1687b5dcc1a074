package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(
				a.orchestrator(a.cfg.PipelineOptions()),
				a.cfg.Registry(),
				server.WithLogger(a.logger),
				server.WithGatherer(prometheus.DefaultGatherer),
				server.WithMaxUploadSize(a.cfg.Server.MaxUploadSize),
			)
			a.logger.Info("starting server", zap.String("ledger", a.root))
			if err := srv.ListenAndServe(cmd.Context(), addr); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
