package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vdl2_parser/internal/api"
	"vdl2_parser/internal/feed"
	"vdl2_parser/internal/metrics"
	"vdl2_parser/internal/output"
	"vdl2_parser/internal/pipeline"
	"vdl2_parser/internal/reasm"
	"vdl2_parser/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Decode frames from NATS and serve the HTTP API",
	Long: `Subscribe to the configured NATS subject, decode every frame and write the
results to the configured output and storage. Decoded records are also
published on nats.publish_subject when it is set. The HTTP API (api.enabled)
exposes on-demand decoding, reassembly table state and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("nats-url", "", "NATS server URL")
	serveCmd.Flags().Int("port", 0, "HTTP API port")
	serveCmd.Flags().String("storage", "", "storage driver (none/sqlite/postgres/clickhouse/mongo)")
	bindFlag("nats.url", serveCmd, "nats-url")
	bindFlag("api.port", serveCmd, "port")
	bindFlag("storage.driver", serveCmd, "storage")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer sink.Close()

	nc, err := feed.Connect(cfg.NATS)
	if err != nil {
		return err
	}
	defer nc.Close()

	out, err := output.Open(cfg.Output)
	if err != nil {
		return err
	}
	var writer output.Writer = out
	if cfg.NATS.PublishSubject != "" {
		writer = output.Multi{out, feed.NewPublisher(nc, cfg.NATS.PublishSubject)}
	}
	defer writer.Close()

	m := metrics.NewPrometheus()
	dec := newDecoder(m)
	rctx := reasm.NewContext()
	p := pipeline.New(dec, rctx,
		pipeline.WithOutput(writer),
		pipeline.WithSink(sink),
		pipeline.WithLogger(logrus.WithField("component", "pipeline")),
	)
	p.Start(cfg.Pipeline)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.NewSubscriber(nc, cfg.NATS, p).Run(gctx)
	})
	g.Go(func() error {
		if err := rctx.Run(gctx, cfg.Reasm.SweepInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.API.Enabled {
		g.Go(func() error {
			srv := api.NewServer(dec, p, m, cfg.API)
			if archive, ok := sink.(api.Archive); ok {
				srv.WithArchive(archive)
			}
			return srv.Run(gctx)
		})
	}

	logrus.WithFields(logrus.Fields{
		"subject": cfg.NATS.Subject,
		"storage": cfg.Storage.Driver,
		"api":     cfg.API.Enabled,
	}).Info("Serving")

	err = g.Wait()
	if cerr := p.Close(); cerr != nil && err == nil {
		err = cerr
	}
	st := p.Stats()
	logrus.WithFields(logrus.Fields{
		"processed": st.Processed,
		"failed":    st.Failed,
		"stored":    st.Stored,
	}).Info("Stopped")
	return err
}
