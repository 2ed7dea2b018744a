package main

import (
	"log/slog"

	"github.com/openmined/aclnotify/internal/mailer"
	"github.com/openmined/aclnotify/internal/metrics"
	"github.com/openmined/aclnotify/internal/notifier"
	"github.com/openmined/aclnotify/internal/server"
	"github.com/openmined/aclnotify/internal/source"
	"github.com/openmined/aclnotify/internal/store"
	"github.com/openmined/aclnotify/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and optional Kafka consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slog.Info("aclnotify starting", "version", version.ShortWithApp(), "config", cfg)

			st, err := store.New(&cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			sender, err := mailer.New(&cfg.Mail)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			n := notifier.New(cfg.Notifier, st, sender, metrics.New(reg))

			srv, err := server.New(&server.Config{HTTP: cfg.HTTP}, n, reg)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Start(ctx)
			})

			if cfg.Kafka.Enabled() {
				src, err := source.NewKafkaSource(&cfg.Kafka, n)
				if err != nil {
					return err
				}
				g.Go(func() error {
					return src.Run(ctx)
				})
			}

			defer slog.Info("Bye!")
			return g.Wait()
		},
	}
}
