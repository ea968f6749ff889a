// Package bundler builds the browser client bundle, the HTML shell that
// references it, and the Node server bundle the render sidecar loads,
// using esbuild's Go API (in-process, no child processes apart from sass).
package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Config describes the project layout and build mode.
type Config struct {
	Root        string   // project root; every other path is relative to it
	IndexHTML   string   // shell template the client tags are injected into
	ClientEntry string   // browser entry point
	CSSEntry    string   // global style sheet entry, optional
	ServerEntry string   // Node entry point exporting the page components
	OutputDir   string   // client output; the server bundle goes to OutputDir/api
	AssetsDir   string   // copied verbatim into OutputDir in production
	ExtraFiles  []string // single files copied into OutputDir in production
	External    []string // packages the server bundle leaves to node_modules
	SassBinary  string
	Production  bool
}

// DefaultConfig returns the conventional project layout rooted at root.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		IndexHTML:   "src/index.html",
		ClientEntry: "src/index.js",
		CSSEntry:    "src/style.scss",
		ServerEntry: "server/index.js",
		OutputDir:   "deploy",
		AssetsDir:   "src/public",
		External:    []string{"react", "react-dom", "react-helmet"},
		SassBinary:  "sass",
		Production:  true,
	}
}

// ServerDir is the directory under OutputDir that holds the server bundle.
const ServerDir = "api"

// ServerBundle returns the path of the built server bundle, relative to Root.
func (c Config) ServerBundle() string {
	return filepath.Join(c.OutputDir, ServerDir, "server.js")
}

// ShellFile returns the path of the built HTML shell, relative to Root.
func (c Config) ShellFile() string {
	return filepath.Join(c.OutputDir, "index.html")
}

// Resolve returns c with Root made absolute, as esbuild requires.
func (c Config) Resolve() (Config, error) {
	if c.Root == "" {
		c.Root = "."
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return c, fmt.Errorf("bundler: resolve project root: %w", err)
	}
	c.Root = root
	return c, nil
}

func (c Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func (c Config) mode() string {
	if c.Production {
		return "production"
	}
	return "development"
}

// loaders maps file extensions to esbuild loaders. Markdown, sass and
// JS-imported svg are handled by plugins.
func loaders() map[string]api.Loader {
	return map[string]api.Loader{
		".js":    api.LoaderJSX,
		".jsx":   api.LoaderJSX,
		".css":   api.LoaderCSS,
		".svg":   api.LoaderFile,
		".png":   api.LoaderFile,
		".jpg":   api.LoaderFile,
		".jpeg":  api.LoaderFile,
		".gif":   api.LoaderFile,
		".woff":  api.LoaderFile,
		".woff2": api.LoaderFile,
		".ttf":   api.LoaderFile,
		".eot":   api.LoaderFile,
	}
}

func (c Config) common() api.BuildOptions {
	opts := api.BuildOptions{
		Bundle:            true,
		AbsWorkingDir:     c.Root,
		JSX:               api.JSXAutomatic,
		Loader:            loaders(),
		Plugins:           []api.Plugin{markdownPlugin(), svgComponentPlugin(), sassPlugin(c.SassBinary, c.Production)},
		MinifyWhitespace:  c.Production,
		MinifyIdentifiers: c.Production,
		MinifySyntax:      c.Production,
		Define:            map[string]string{"process.env.NODE_ENV": `"` + c.mode() + `"`},
		Metafile:          true,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
	}
	if c.Production {
		opts.Sourcemap = api.SourceMapLinked
	} else {
		opts.Sourcemap = api.SourceMapInline
	}
	return opts
}

// ClientOptions returns the esbuild options for the browser bundle.
func ClientOptions(c Config) api.BuildOptions {
	opts := c.common()
	entries := []api.EntryPoint{{InputPath: c.abs(c.ClientEntry), OutputPath: "app"}}
	if c.CSSEntry != "" {
		entries = append(entries, api.EntryPoint{InputPath: c.abs(c.CSSEntry), OutputPath: "style"})
	}
	opts.EntryPointsAdvanced = entries
	opts.Outdir = c.abs(c.OutputDir)
	opts.Platform = api.PlatformBrowser
	opts.Format = api.FormatIIFE
	opts.Target = api.ES2017
	opts.PublicPath = "/"
	opts.AssetNames = "assets/[name]-[hash]"
	if c.Production {
		opts.EntryNames = "[name]-[hash]"
	} else {
		opts.EntryNames = "[name]"
	}
	return opts
}

// ServerOptions returns the esbuild options for the Node server bundle.
func ServerOptions(c Config) api.BuildOptions {
	opts := c.common()
	opts.EntryPointsAdvanced = []api.EntryPoint{{InputPath: c.abs(c.ServerEntry), OutputPath: "server"}}
	opts.Outdir = c.abs(filepath.Join(c.OutputDir, ServerDir))
	opts.Platform = api.PlatformNode
	opts.Format = api.FormatCommonJS
	opts.EntryNames = "[name]"
	opts.PublicPath = "/"
	opts.External = c.External
	return opts
}

// Result lists what a client build produced, as URL paths under OutputDir.
type Result struct {
	Scripts []string
	Styles  []string
}

// Build runs a full build. Production cleans the output, builds the client,
// copies static assets, writes the shell and builds the server bundle.
// Development builds the client and the shell only.
func Build(c Config) (Result, error) {
	c, err := c.Resolve()
	if err != nil {
		return Result{}, err
	}
	if c.Production {
		if err := cleanDir(c.abs(c.OutputDir), ServerDir); err != nil {
			return Result{}, err
		}
	}

	res, err := buildClient(c)
	if err != nil {
		return Result{}, err
	}

	if c.Production {
		if err := copyAssets(c); err != nil {
			return Result{}, err
		}
		if err := BuildServer(c); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// BuildServer builds the server bundle into OutputDir/api, replacing what was there.
func BuildServer(c Config) error {
	c, err := c.Resolve()
	if err != nil {
		return err
	}
	if err := os.RemoveAll(c.abs(filepath.Join(c.OutputDir, ServerDir))); err != nil {
		return fmt.Errorf("bundler: clean server output: %w", err)
	}
	result := api.Build(ServerOptions(c))
	if err := flattenErrors(result.Errors); err != nil {
		return fmt.Errorf("bundler: server: %w", err)
	}
	return nil
}

func buildClient(c Config) (Result, error) {
	result := api.Build(ClientOptions(c))
	if err := flattenErrors(result.Errors); err != nil {
		return Result{}, fmt.Errorf("bundler: client: %w", err)
	}
	return finishClient(c, result.Metafile)
}

// finishClient reads the produced entry files from the metafile and writes
// the HTML shell referencing them.
func finishClient(c Config, metafile string) (Result, error) {
	res, err := outputsFromMetafile(c, metafile)
	if err != nil {
		return Result{}, err
	}
	if err := WriteShell(c, res); err != nil {
		return Result{}, err
	}
	return res, nil
}

type metafileOutputs struct {
	Outputs map[string]struct {
		EntryPoint string `json:"entryPoint"`
	} `json:"outputs"`
}

func outputsFromMetafile(c Config, metafile string) (Result, error) {
	var meta metafileOutputs
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return Result{}, fmt.Errorf("bundler: parse metafile: %w", err)
	}

	outDir := c.abs(c.OutputDir)
	var res Result
	for out, info := range meta.Outputs {
		rel, err := filepath.Rel(outDir, c.abs(out))
		if err != nil {
			return Result{}, fmt.Errorf("bundler: output %s: %w", out, err)
		}
		url := "/" + filepath.ToSlash(rel)
		switch {
		case strings.HasSuffix(out, ".js") && info.EntryPoint != "":
			res.Scripts = append(res.Scripts, url)
		case strings.HasSuffix(out, ".css"):
			res.Styles = append(res.Styles, url)
		}
	}
	sort.Strings(res.Scripts)
	sort.Strings(res.Styles)
	return res, nil
}

// flattenErrors joins esbuild messages into one error, or returns nil.
func flattenErrors(errs []api.Message) error {
	if len(errs) == 0 {
		return nil
	}
	var msgs []string
	for _, msg := range errs {
		text := msg.Text
		if msg.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		}
		msgs = append(msgs, text)
	}
	return fmt.Errorf("esbuild errors:\n%s", strings.Join(msgs, "\n"))
}
