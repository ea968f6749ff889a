// Package renderer drives the JavaScript render sidecar: a Node process that
// loads the server bundle and renders page components to HTML plus head
// metadata over a small JSON protocol.
package renderer

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rafbgarcia/ssrshim"
	"github.com/rafbgarcia/ssrshim/endpoint"
	"github.com/rafbgarcia/ssrshim/head"
)

//go:embed runtime/ssr.mjs
var sidecarScript []byte

// StateDir is the directory, relative to the project root, where the sidecar
// script and port file are written.
const StateDir = ".ssrshim"

// Options configures a Renderer.
type Options struct {
	// Command runs the sidecar. The script path and "--bundle <Bundle>" are
	// appended. Defaults to ["node"].
	Command []string
	// Bundle is the server bundle the sidecar loads.
	Bundle string
	// ProjectRoot is where StateDir lives. Defaults to ".".
	ProjectRoot string
	// Env is appended to the current process environment.
	Env []string
	// StartTimeout bounds the wait for the sidecar's port. Defaults to 10s.
	StartTimeout time.Duration
	Log          *ssrshim.Logger
}

type Renderer struct {
	opts    Options
	baseURL string
	cmd     *exec.Cmd
	client  *http.Client
}

func New(opts Options) *Renderer {
	if len(opts.Command) == 0 {
		opts.Command = []string{"node"}
	}
	if opts.ProjectRoot == "" {
		opts.ProjectRoot = "."
	}
	if opts.StartTimeout == 0 {
		opts.StartTimeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = ssrshim.NopLogger()
	}
	return &Renderer{opts: opts, client: &http.Client{}}
}

// Start writes the sidecar script, spawns the sidecar process and waits for it
// to report its port.
func (r *Renderer) Start(ctx context.Context) error {
	absRoot, err := filepath.Abs(r.opts.ProjectRoot)
	if err != nil {
		return fmt.Errorf("renderer: resolve project root: %w", err)
	}
	stateDir := filepath.Join(absRoot, StateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("renderer: create %s: %w", stateDir, err)
	}
	script := filepath.Join(stateDir, "ssr.mjs")
	if err := os.WriteFile(script, sidecarScript, 0644); err != nil {
		return fmt.Errorf("renderer: write sidecar script: %w", err)
	}

	bundle := r.opts.Bundle
	if bundle != "" && !filepath.IsAbs(bundle) {
		bundle = filepath.Join(absRoot, bundle)
	}

	args := append(append([]string{}, r.opts.Command[1:]...), script, "--bundle", bundle)
	r.cmd = exec.Command(r.opts.Command[0], args...)
	r.cmd.Dir = absRoot
	r.cmd.Stderr = os.Stderr
	r.cmd.Env = append(os.Environ(), r.opts.Env...)

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("renderer: stdout pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("renderer: start sidecar: %w", err)
	}

	// Read the port from the first line of stdout with a timeout.
	portCh := make(chan int, 1)
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			port, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil {
				errCh <- fmt.Errorf("renderer: invalid port %q: %w", scanner.Text(), err)
				return
			}
			portCh <- port
		} else {
			errCh <- fmt.Errorf("renderer: sidecar closed stdout without printing port")
		}
	}()

	select {
	case port := <-portCh:
		r.baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
		r.opts.Log.Info("render sidecar started", "port", port)
	case err := <-errCh:
		r.kill()
		return err
	case <-time.After(r.opts.StartTimeout):
		r.kill()
		return fmt.Errorf("renderer: timed out waiting for sidecar port")
	case <-ctx.Done():
		r.kill()
		return fmt.Errorf("renderer: start: %w", ctx.Err())
	}

	return nil
}

func (r *Renderer) kill() {
	r.cmd.Process.Kill()
	r.cmd.Wait()
}

// Stop sends SIGINT to the sidecar and waits for it to exit.
func (r *Renderer) Stop() error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		// Process may have already exited.
		return nil
	}
	// SIGINT may produce a non-zero exit code, which is expected.
	r.cmd.Wait()
	return nil
}

// Request describes what to render: a page component by name, the URL it is
// rendered for, and optional props.
type Request struct {
	Component string         `json:"component"`
	Path      string         `json:"path"`
	Query     string         `json:"query"`
	Props     map[string]any `json:"props,omitempty"`
}

type renderResponse struct {
	HTML   string        `json:"html"`
	Head   head.Metadata `json:"head"`
	Styles string        `json:"styles"`
	Error  string        `json:"error"`
}

// Render sends a render request to the sidecar and returns the markup and
// head metadata it produced.
func (r *Renderer) Render(ctx context.Context, req Request) (endpoint.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return endpoint.Result{}, fmt.Errorf("renderer: marshal request: %w", err)
	}

	var result renderResponse
	if err := r.post(ctx, "/render", body, &result); err != nil {
		return endpoint.Result{}, err
	}
	if result.Error != "" {
		return endpoint.Result{}, fmt.Errorf("renderer: %s", result.Error)
	}

	result.Head.Style = result.Styles
	return endpoint.Result{HTML: result.HTML, Head: result.Head}, nil
}

// Invalidate asks the sidecar to reload the server bundle.
func (r *Renderer) Invalidate(ctx context.Context) error {
	return r.post(ctx, "/invalidate", []byte("{}"), nil)
}

func (r *Renderer) post(ctx context.Context, path string, body []byte, out any) error {
	if r.baseURL == "" {
		return fmt.Errorf("renderer: sidecar not started")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("renderer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("renderer: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("renderer: decode response: %w", err)
	}
	return nil
}

// Component returns an endpoint.Builder rendering the named page through the
// sidecar.
func (r *Renderer) Component(name string) endpoint.Builder {
	return func(req endpoint.RenderRequest) endpoint.Component {
		return endpoint.ComponentFunc(func(c *ssrshim.Context) (endpoint.Result, error) {
			return r.Render(c.Context(), Request{
				Component: name,
				Path:      req.Path,
				Query:     req.Query,
			})
		})
	}
}
