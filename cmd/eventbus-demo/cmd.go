package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/geoyee/eventbus/pkg/config"
)

const version = "1.0.0"

type options struct {
	configPath  string
	events      int
	interval    time.Duration
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "eventbus-demo",
		Short:         "Publish DATA-UPDATE events and print them",
		Long:          "eventbus-demo starts an event bus, publishes DATA-UPDATE bundles from a producer and prints every bundle a console subscriber receives.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.ListenAddr = opts.metricsAddr
			}
			return run(cmd.Context(), cfg, producerConfig{
				Events:   opts.events,
				Interval: opts.interval,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", envOrDefault("EVENTBUS_CONFIG", ""), "YAML or JSON configuration file")
	cmd.Flags().IntVarP(&opts.events, "events", "n", 10, "number of events to publish, 0 publishes until interrupted")
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", 200*time.Millisecond, "delay between events")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /latest/<topic> on this address")
	return cmd
}
