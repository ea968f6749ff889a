package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rafbgarcia/ssrshim"
	"github.com/rafbgarcia/ssrshim/endpoint"
	"github.com/rafbgarcia/ssrshim/internal/bundler"
	"github.com/rafbgarcia/ssrshim/internal/config"
	"github.com/rafbgarcia/ssrshim/internal/conventions"
	"github.com/rafbgarcia/ssrshim/internal/metrics"
	"github.com/rafbgarcia/ssrshim/renderer"
	"github.com/rafbgarcia/ssrshim/router"
	"github.com/rafbgarcia/ssrshim/shell"
)

// pageBuilder returns the component builder for a configured page name.
type pageBuilder func(page string) endpoint.Builder

// newHandler wires one endpoint per page over a single shared shell cache,
// plus static client files and /metrics.
func newHandler(cfg *config.Config, log *ssrshim.Logger, build pageBuilder, m *metrics.Endpoint, gatherer prometheus.Gatherer) (http.Handler, error) {
	cache, err := shell.NewFileCache(cfg.ShellPath(), shell.WithMountID(cfg.MountID), shell.WithLogger(log))
	if err != nil {
		return nil, err
	}

	r := router.New()
	r.Use(ssrshim.RequestLogger(log))
	r.Handle("/metrics", metrics.Handler(gatherer))

	for _, page := range cfg.Pages {
		opts := []endpoint.Option{
			endpoint.WithName(page),
			endpoint.WithLogger(log),
			endpoint.WithMetrics(m),
		}
		if cfg.Styled {
			opts = append(opts, endpoint.WithStyles())
		}
		r.Page(conventions.PageToURLPattern(page), endpoint.New(cache, build(page), opts...))
	}

	r.Static(cfg.StaticPrefix, cfg.OutputDir(), privateOutputs(cfg)...)
	return r, nil
}

// privateOutputs lists what the output directory holds that must not be
// served as a static file: the server bundle and the raw shell.
func privateOutputs(cfg *config.Config) []string {
	private := []string{bundler.ServerDir}
	rel, err := filepath.Rel(cfg.OutputDir(), cfg.ShellPath())
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		private = append(private, filepath.ToSlash(rel))
	}
	return private
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// startRenderer launches the sidecar and registers its shutdown on app.
func startRenderer(ctx context.Context, app *ssrshim.App, cfg *config.Config) (*renderer.Renderer, error) {
	r := renderer.New(renderer.Options{
		Command:     cfg.Renderer.Command,
		Bundle:      cfg.ServerBundle(),
		ProjectRoot: cfg.Root,
		Log:         app.Log,
	})
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	app.OnClose(r.Stop)
	return r, nil
}

func runServe(ctx context.Context, cfg *config.Config, log *ssrshim.Logger) error {
	app := ssrshim.NewApp(log)
	defer app.Close()

	r, err := startRenderer(ctx, app, cfg)
	if err != nil {
		return err
	}

	reg := newRegistry()
	handler, err := newHandler(cfg, log, r.Component, metrics.NewEndpoint(reg), reg)
	if err != nil {
		return err
	}
	return listen(ctx, cfg.Port, handler, log)
}

// listen serves handler on port until ctx is done, then shuts down gracefully.
func listen(ctx context.Context, port string, handler http.Handler, log *ssrshim.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
