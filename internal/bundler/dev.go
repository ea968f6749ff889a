package bundler

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Dev keeps esbuild contexts alive between rebuilds so the dev loop only
// pays for incremental work.
type Dev struct {
	cfg    Config
	client api.BuildContext
	server api.BuildContext
}

// NewDev prepares incremental client and server builds. cfg.Production is
// forced off.
func NewDev(cfg Config) (*Dev, error) {
	cfg, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	cfg.Production = false

	client, cerr := api.Context(ClientOptions(cfg))
	if cerr != nil {
		return nil, fmt.Errorf("bundler: client context: %w", flattenErrors(cerr.Errors))
	}
	server, cerr := api.Context(ServerOptions(cfg))
	if cerr != nil {
		client.Dispose()
		return nil, fmt.Errorf("bundler: server context: %w", flattenErrors(cerr.Errors))
	}
	return &Dev{cfg: cfg, client: client, server: server}, nil
}

// RebuildClient rebuilds the browser bundle and rewrites the shell.
func (d *Dev) RebuildClient() (Result, error) {
	result := d.client.Rebuild()
	if err := flattenErrors(result.Errors); err != nil {
		return Result{}, fmt.Errorf("bundler: client: %w", err)
	}
	return finishClient(d.cfg, result.Metafile)
}

// RebuildServer rebuilds the server bundle.
func (d *Dev) RebuildServer() error {
	result := d.server.Rebuild()
	if err := flattenErrors(result.Errors); err != nil {
		return fmt.Errorf("bundler: server: %w", err)
	}
	return nil
}

// Dispose releases the esbuild contexts.
func (d *Dev) Dispose() {
	d.client.Dispose()
	d.server.Dispose()
}
