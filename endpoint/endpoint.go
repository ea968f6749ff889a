// Package endpoint turns a page component into an HTTP handler that renders
// it on every request and splices the output into the cached HTML shell.
package endpoint

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rafbgarcia/ssrshim"
	"github.com/rafbgarcia/ssrshim/head"
	"github.com/rafbgarcia/ssrshim/internal/metrics"
	"github.com/rafbgarcia/ssrshim/shell"
)

// FailureMessage is the body of every 500 response.
const FailureMessage = "Oops, better luck next time!"

// RenderRequest is the part of the incoming URL a page component is built from.
type RenderRequest struct {
	Path  string
	Query string // raw query, without the leading "?"
}

// Search returns the query with its leading "?", or "" when there is none.
func (r RenderRequest) Search() string {
	if r.Query == "" {
		return ""
	}
	return "?" + r.Query
}

// Result is what a component render produces.
type Result struct {
	HTML string
	Head head.Metadata
}

// Component renders a page's root component.
type Component interface {
	Render(c *ssrshim.Context) (Result, error)
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(c *ssrshim.Context) (Result, error)

// Render calls f(c).
func (f ComponentFunc) Render(c *ssrshim.Context) (Result, error) {
	return f(c)
}

// Builder builds the root component for a request.
type Builder func(RenderRequest) Component

// ShellLoader provides the parsed shell. *shell.Cache implements it.
type ShellLoader interface {
	Load() (*shell.Template, error)
}

// Endpoint is an http.Handler serving one page.
type Endpoint struct {
	shell   ShellLoader
	build   Builder
	styled  bool
	page    string
	log     *ssrshim.Logger
	metrics *metrics.Endpoint
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithStyles selects the styled variant: the collected style sheet joins the
// head block and the rendered markup is placed inside the mount element.
func WithStyles() Option {
	return func(e *Endpoint) { e.styled = true }
}

// WithName labels the endpoint in logs and metrics.
func WithName(name string) Option {
	return func(e *Endpoint) { e.page = name }
}

// WithLogger sets the endpoint's logger.
func WithLogger(log *ssrshim.Logger) Option {
	return func(e *Endpoint) { e.log = log }
}

// WithMetrics records request outcomes and render durations on m.
func WithMetrics(m *metrics.Endpoint) Option {
	return func(e *Endpoint) { e.metrics = m }
}

// New creates an Endpoint rendering the component returned by build.
func New(s ShellLoader, build Builder, opts ...Option) *Endpoint {
	e := &Endpoint{
		shell: s,
		build: build,
		page:  "page",
		log:   ssrshim.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("page", e.page)
	return e
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tmpl, err := e.shell.Load()
	if err != nil {
		e.log.Error("Oops, no contents :(", "error", err)
		e.fail(w)
		return
	}

	req := RenderRequest{Path: r.URL.Path, Query: r.URL.RawQuery}
	start := time.Now()
	result, err := e.build(req).Render(ssrshim.NewContext(r, e.log))
	e.metrics.Render(e.page, time.Since(start))
	if err != nil {
		e.log.Error("render failed", "path", req.Path, "error", err)
		e.fail(w)
		return
	}

	fill := map[shell.Slot]string{shell.SlotHead: result.Head.Render(e.styled)}
	if e.styled {
		fill[shell.SlotBody] = result.HTML
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fill); err != nil {
		e.log.Error("assembling page failed", "error", fmt.Errorf("endpoint: %w", err))
		e.fail(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
	e.metrics.Request(e.page, http.StatusOK)
}

func (e *Endpoint) fail(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, FailureMessage)
	e.metrics.Request(e.page, http.StatusInternalServerError)
}
