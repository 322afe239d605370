// Package serve runs the local preview loop: it serves the published output,
// rebuilds when content or configuration changes, accepts authenticated
// webhook pokes and optionally rebuilds on a fixed interval. Preview
// rebuilds never deploy.
package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/events"
	"github.com/pagefold/pagefold/internal/history"
	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/metrics"
	"github.com/pagefold/pagefold/internal/pipeline"
	"github.com/pagefold/pagefold/internal/site"
	"github.com/pagefold/pagefold/internal/watch"
)

// Debounce tuning for editor-driven rebuilds. One save produces a burst of
// filesystem events; one build should come out.
const (
	quietWindow = 400 * time.Millisecond
	maxDelay    = 5 * time.Second
)

// Options configure the preview server beyond the site configuration.
type Options struct {
	// Recorder receives build metrics. Registry additionally exposes them
	// on /metrics when set.
	Recorder metrics.Recorder
	Registry *prom.Registry
	// History, when set, records every preview rebuild.
	History *history.Store
	// Publisher, when set, mirrors lifecycle events to NATS.
	Publisher *events.Publisher
}

// Server is the preview server. It owns the event wiring between the
// filesystem watcher, the debouncer, the interval scheduler and the rebuild
// loop.
type Server struct {
	cfg        *config.Config
	configPath string
	opts       Options
	recorder   metrics.Recorder

	mu   sync.RWMutex
	last *site.BuildReport
}

// New creates a preview server for an already loaded configuration.
// configPath is re-read before every rebuild so configuration edits take
// effect without a restart; output and listen settings stay pinned until one.
func New(cfg *config.Config, configPath string, opts Options) *Server {
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Server{cfg: cfg, configPath: configPath, opts: opts, recorder: rec}
}

// Run blocks until the context is canceled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus()
	defer bus.Close()

	// First build before accepting traffic. A failed first build still
	// starts the server: the next save rebuilds.
	s.rebuild(ctx, bus)

	var wg sync.WaitGroup

	if s.cfg.Content.Repo == "" {
		watcher, err := watch.NewWatcher(bus, s.cfg.Content.Dir, s.configPath)
		if err != nil {
			return err
		}
		defer watcher.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil {
				slog.Error("content watcher stopped", logfields.Error(err))
			}
		}()
	} else {
		slog.Info("content comes from a remote repository; filesystem watching disabled")
	}

	debouncer, err := watch.NewDebouncer(bus, watch.DebouncerConfig{
		QuietWindow: quietWindow,
		MaxDelay:    maxDelay,
	})
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = debouncer.Run(ctx)
	}()

	scheduler, err := s.startScheduler(ctx, bus)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Warn("scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	due, unsubscribe := events.Subscribe[events.RebuildDue](bus, 8)
	defer unsubscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-due:
				if !ok {
					return
				}
				s.recorder.IncRebuild(ev.LastReason)
				slog.Info("rebuild due",
					slog.String("reason", ev.LastReason),
					slog.Int("requests", ev.RequestCount),
					slog.String("cause", ev.Cause))
				s.rebuild(ctx, bus)
			}
		}
	}()

	err = s.serveHTTP(ctx, bus)
	cancel()
	wg.Wait()
	return err
}

// rebuild reloads the configuration and runs a build-only pipeline.
func (s *Server) rebuild(ctx context.Context, bus *events.Bus) {
	if cfg, err := config.Load(s.configPath); err != nil {
		slog.Error("configuration reload failed, keeping previous configuration",
			logfields.Config(s.configPath), logfields.Error(err))
	} else {
		s.mu.Lock()
		s.cfg = cfg
		s.mu.Unlock()
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	runner := pipeline.NewRunner(cfg, pipeline.Options{
		Recorder:  s.recorder,
		Bus:       bus,
		Publisher: s.opts.Publisher,
		History:   s.opts.History,
	})
	run, err := runner.Execute(ctx)
	if err != nil {
		slog.Error("preview rebuild failed", logfields.Error(err))
	}
	if run != nil && run.Report != nil {
		s.mu.Lock()
		s.last = run.Report
		s.mu.Unlock()
	}
}

// startScheduler arranges interval rebuild requests when configured.
func (s *Server) startScheduler(ctx context.Context, bus *events.Bus) (gocron.Scheduler, error) {
	interval := s.cfg.Serve.RebuildInterval
	if interval == "" {
		return nil, nil
	}
	every, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("parse serve.rebuild_interval: %w", err)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			_ = bus.Publish(ctx, events.RebuildRequested{
				Reason:      events.TriggerInterval,
				RequestedAt: time.Now(),
			})
		}),
		gocron.WithName("interval-rebuild"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule interval rebuild: %w", err)
	}
	sched.Start()
	slog.Info("interval rebuilds enabled", slog.Duration("every", every))
	return sched, nil
}

func (s *Server) serveHTTP(ctx context.Context, bus *events.Bus) error {
	// Snapshot the pinned settings; rebuilds may swap s.cfg concurrently.
	s.mu.RLock()
	outputDir := s.cfg.Output.Directory
	addr := s.cfg.Serve.Addr
	secret := s.cfg.Serve.WebhookSecret
	s.mu.RUnlock()

	mux := http.NewServeMux()
	mux.Handle("/", noCache(http.FileServer(http.Dir(outputDir))))
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.opts.Registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	if secret != "" {
		mux.Handle("/-/rebuild", s.webhookHandler(bus, secret))
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("preview server listening",
			slog.String("addr", srv.Addr),
			logfields.Output(outputDir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", logfields.Error(err))
		_ = srv.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	resp := map[string]any{"status": "ok"}
	if last != nil {
		resp["build_id"] = last.BuildID
		resp["outcome"] = string(last.Outcome)
		resp["documents"] = last.Documents
		resp["finished_at"] = last.End
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("write health response", logfields.Error(err))
	}
}

// noCache disables client caching; preview content changes on every save.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
