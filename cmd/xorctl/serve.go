package main

import (
	"github.com/pietroferretti/ctftools/internal/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		addr        string
		metricsAddr string
		maxStream   int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analyzer gRPC service",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			opts, err := a.options()
			if err != nil {
				return err
			}
			audit := a.audit.WithComponent("analyzer")
			analyzer := server.NewAnalyzer(
				server.WithDefaults(opts),
				server.WithMaxStreamLimit(maxStream),
				server.WithLogger(a.logger),
				server.WithAuditLogger(audit),
			)
			return server.Run(cmd.Context(), cfg, analyzer, audit, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint")
	cmd.Flags().IntVar(&maxStream, "max-stream", server.DefaultMaxStreamLimit, "largest key count one EnumerateKeys call may request")
	return cmd
}
