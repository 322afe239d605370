package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/metrics"
	"github.com/pagefold/pagefold/internal/serve"
)

// ServeCmd implements the 'serve' command: a local preview server with
// watch-triggered rebuilds. Preview never deploys.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides serve.addr from the configuration"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Serve.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := openHistory(cfg)
	defer closeHistory(store)
	pub := newPublisher(cfg)
	defer closePublisher(pub)

	registry := prometheus.NewRegistry()
	srv := serve.New(cfg, root.Config, serve.Options{
		Recorder:  metrics.NewPrometheusRecorder(registry),
		Registry:  registry,
		History:   store,
		Publisher: pub,
	})
	return srv.Run(ctx)
}
