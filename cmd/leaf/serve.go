package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/leaf/internal/config"
	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/engine/watcher"
	"github.com/crimson-sun/leaf/internal/metrics"
	"github.com/crimson-sun/leaf/internal/ui"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Start the web UI and JSON API",
		Args:        cobra.NoArgs,
		Annotations: needsArtifact(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			if noWatch {
				a.cfg.Artifact.Watch = false
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LEAF_HTTP_ADDR)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the artifact when its files change")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	eng, info, err := a.loadEngine(m)
	if err != nil {
		return err
	}
	defer eng.Close()

	base, err := a.buildOutput(false)
	if err != nil {
		return err
	}
	out := a.asyncOutput(base)
	if out != nil {
		defer func() {
			if err := out.Close(); err != nil {
				a.logger.Error("closing output", "error", err)
			}
		}()
	}

	webApp, err := ui.NewApp(eng, ui.Config{
		StrictRanges: a.cfg.Artifact.StrictRanges,
		Output:       out,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:       a.logger,
		Version:      config.Version,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           webApp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("leaf listening",
			"addr", srv.Addr,
			"artifact", info.Path,
			"kind", info.Kind,
			"version", info.Version,
			"strict_ranges", a.cfg.Artifact.StrictRanges,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Artifact.Watch {
		w, err := watcher.New(eng, info, watcher.Config{
			Debounce: a.cfg.Artifact.WatchDebounce,
			Logger:   a.logger,
			OnReload: func(info artifact.Info, err error) {
				if err == nil {
					a.logger.Debug("serving reloaded artifact", "path", info.Path)
				}
			},
		})
		if err != nil {
			a.logger.Warn("artifact watch disabled", "error", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	return g.Wait()
}
