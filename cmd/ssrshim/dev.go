package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/rafbgarcia/ssrshim"
	"github.com/rafbgarcia/ssrshim/internal/bundler"
	"github.com/rafbgarcia/ssrshim/internal/config"
	"github.com/rafbgarcia/ssrshim/internal/metrics"
	"github.com/rafbgarcia/ssrshim/internal/watcher"
)

// swapHandler serves whichever handler was stored last. Each rebuild stores a
// handler with a fresh shell cache so the new shell is picked up.
type swapHandler struct {
	h atomic.Pointer[http.Handler]
}

func (s *swapHandler) Store(h http.Handler) {
	s.h.Store(&h)
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.h.Load()).ServeHTTP(w, r)
}

// rebuildPlan says which targets a batch of changes requires.
type rebuildPlan struct {
	client bool
	server bool
}

func planRebuild(batch []watcher.Event) rebuildPlan {
	var p rebuildPlan
	for _, ev := range batch {
		switch ev.Kind {
		case "script":
			p.client = true
			p.server = true
		case "style", "shell":
			p.client = true
		}
	}
	return p
}

func runDev(ctx context.Context, cfg *config.Config, log *ssrshim.Logger) error {
	app := ssrshim.NewApp(log)
	defer app.Close()

	// Step 1: Prepare incremental builds.
	dev, err := bundler.NewDev(cfg.Bundler(false))
	if err != nil {
		return err
	}
	app.OnClose(func() error { dev.Dispose(); return nil })

	// Step 2: Bundle client JS and the server bundle.
	if err := rebuild(dev, rebuildPlan{client: true, server: true}); err != nil {
		return err
	}

	// Step 3: Start the render sidecar.
	fmt.Print("  Render sidecar .. ")
	r, err := startRenderer(ctx, app, cfg)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("started")

	// Step 4: Start the HTTP server.
	reg := newRegistry()
	m := metrics.NewEndpoint(reg)
	handler, err := newHandler(cfg, log, r.Component, m, reg)
	if err != nil {
		return err
	}
	var swap swapHandler
	swap.Store(handler)
	fmt.Printf("  HTTP server ..... starting on :%s\n", cfg.Port)

	// Step 5: Start file watcher.
	fmt.Println("\n  Watching for changes...")
	batches := make(chan []watcher.Event, 16)
	w := watcher.New(cfg.Root, []string{cfg.Bundle.OutputDir}, func(b []watcher.Event) { deliver(ctx, batches, b) })
	if err := w.Start(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch := <-batches:
				for _, ev := range batch {
					fmt.Printf("\n  [change] %s\n", ev.Path)
				}
				plan := planRebuild(batch)
				if err := rebuild(dev, plan); err != nil {
					continue
				}
				if plan.server {
					if err := r.Invalidate(ctx); err != nil {
						log.Warn("invalidating sidecar failed", "error", err)
					}
				}
				next, err := newHandler(cfg, log, r.Component, m, reg)
				if err != nil {
					log.Error("rebuilding handler failed", "error", err)
					continue
				}
				swap.Store(next)
			}
		}
	}()

	return listen(ctx, cfg.Port, &swap, log)
}

// deliver hands a batch to the rebuild loop, dropping it once ctx is done so
// the watcher never blocks on a loop that has exited.
func deliver(ctx context.Context, batches chan<- []watcher.Event, b []watcher.Event) bool {
	select {
	case batches <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func rebuild(dev *bundler.Dev, plan rebuildPlan) error {
	if plan.client {
		fmt.Print("  Client bundle ... ")
		t := time.Now()
		if _, err := dev.RebuildClient(); err != nil {
			fmt.Println("FAILED")
			fmt.Fprintf(os.Stderr, "  bundling error: %s\n", err)
			return err
		}
		fmt.Printf("done [%s]\n", fmtDuration(time.Since(t)))
	}
	if plan.server {
		fmt.Print("  Server bundle ... ")
		t := time.Now()
		if err := dev.RebuildServer(); err != nil {
			fmt.Println("FAILED")
			fmt.Fprintf(os.Stderr, "  bundling error: %s\n", err)
			return err
		}
		fmt.Printf("done [%s]\n", fmtDuration(time.Since(t)))
	}
	return nil
}
