package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

const indexTemplate = `<!doctype html>
<html>
  <head>
    <title>Placeholder</title>
  </head>
  <body>
    <div id="app"></div>
  </body>
</html>
`

// writeProject lays out a minimal project with no npm dependencies.
func writeProject(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/index.html":        indexTemplate,
		"src/index.js":          "import readme from './readme.md';\nimport './base.css';\ndocument.title = readme;\n",
		"src/readme.md":         "# Hello\n",
		"src/base.css":          "body { margin: 0; }\n",
		"src/public/robots.txt": "User-agent: *\n",
		"server/index.js":       "exports.pages = { index: function () { return null; } };\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	cfg := DefaultConfig(root)
	cfg.CSSEntry = ""
	cfg.External = nil
	return cfg
}

func TestBuildProduction(t *testing.T) {
	cfg := writeProject(t)
	stale := filepath.Join(cfg.Root, "deploy", "old.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, nil, 0644))

	res, err := Build(cfg)
	require.NoError(t, err)

	require.Len(t, res.Scripts, 1)
	assert.Regexp(t, `^/app-[A-Z0-9]+\.js$`, res.Scripts[0])
	require.Len(t, res.Styles, 1)
	assert.FileExists(t, filepath.Join(cfg.Root, "deploy", strings.TrimPrefix(res.Scripts[0], "/")))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(cfg.Root, "deploy", "robots.txt"))
	assert.FileExists(t, filepath.Join(cfg.Root, cfg.ServerBundle()))

	shell, err := os.ReadFile(filepath.Join(cfg.Root, cfg.ShellFile()))
	require.NoError(t, err)
	assert.Contains(t, string(shell), `<script defer src="`+res.Scripts[0]+`"></script>`)
	assert.Contains(t, string(shell), `<div id="app"></div>`)
	assert.Contains(t, string(shell), "<title>Placeholder</title>")
	assert.NotContains(t, string(shell), "\n    ", "production shell is minified")
}

func TestBuildDevelopment(t *testing.T) {
	cfg := writeProject(t)
	cfg.Production = false

	res, err := Build(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"/app.js"}, res.Scripts)
	assert.NoFileExists(t, filepath.Join(cfg.Root, "deploy", "robots.txt"))
	assert.NoFileExists(t, filepath.Join(cfg.Root, cfg.ServerBundle()))

	js, err := os.ReadFile(filepath.Join(cfg.Root, "deploy", "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "Hello")
	assert.Contains(t, string(js), "sourceMappingURL=data:")
}

func TestBuildReportsErrors(t *testing.T) {
	cfg := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "src", "index.js"), []byte("import './missing.js';\n"), 0644))

	_, err := Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "esbuild errors:")
	assert.Contains(t, err.Error(), "missing.js")
}

func TestDevRebuild(t *testing.T) {
	cfg := writeProject(t)

	dev, err := NewDev(cfg)
	require.NoError(t, err)
	defer dev.Dispose()

	_, err = dev.RebuildClient()
	require.NoError(t, err)
	require.NoError(t, dev.RebuildServer())

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "src", "readme.md"), []byte("# Changed\n"), 0644))
	_, err = dev.RebuildClient()
	require.NoError(t, err)

	js, err := os.ReadFile(filepath.Join(cfg.Root, "deploy", "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "Changed")
	assert.FileExists(t, filepath.Join(cfg.Root, cfg.ServerBundle()))
}

func TestTargetOptions(t *testing.T) {
	cfg := DefaultConfig("/project")

	client := ClientOptions(cfg)
	assert.Equal(t, api.PlatformBrowser, client.Platform)
	assert.Equal(t, "/project/deploy", client.Outdir)
	assert.Equal(t, "[name]-[hash]", client.EntryNames)
	assert.Equal(t, api.SourceMapLinked, client.Sourcemap)
	require.Len(t, client.EntryPointsAdvanced, 2)
	assert.Equal(t, "/project/src/style.scss", client.EntryPointsAdvanced[1].InputPath)
	assert.Equal(t, api.LoaderFile, client.Loader[".woff2"])

	server := ServerOptions(cfg)
	assert.Equal(t, api.PlatformNode, server.Platform)
	assert.Equal(t, api.FormatCommonJS, server.Format)
	assert.Equal(t, "/project/deploy/api", server.Outdir)
	assert.Equal(t, []string{"react", "react-dom", "react-helmet"}, server.External)

	cfg.Production = false
	assert.Equal(t, "[name]", ClientOptions(cfg).EntryNames)
	assert.Equal(t, api.SourceMapInline, ClientOptions(cfg).Sourcemap)
	assert.False(t, ClientOptions(cfg).MinifyWhitespace)
}

func TestInjectTags(t *testing.T) {
	got := InjectTags(indexTemplate, Result{Scripts: []string{"/app.js"}, Styles: []string{"/style.css"}})
	assert.Contains(t, got, `<link href="/style.css" rel="stylesheet"><script defer src="/app.js"></script></head>`)

	got = InjectTags("<p>no head</p>", Result{Scripts: []string{"/app.js"}})
	assert.Equal(t, `<script defer src="/app.js"></script><p>no head</p>`, got)
}

func TestMinifyHTMLKeepsSlots(t *testing.T) {
	got, err := MinifyHTML(indexTemplate)
	require.NoError(t, err)
	assert.Contains(t, got, "<title>Placeholder</title>")
	assert.Contains(t, got, `<div id="app"></div>`)
}

func TestMarkdownModule(t *testing.T) {
	got, err := markdownModule(goldmark.New(), []byte("*hi* \"there\""))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "export default \""))
	assert.Contains(t, got, `<p><em>hi</em>`)
}

func TestSvgModule(t *testing.T) {
	got, err := svgModule([]byte("  <svg viewBox=\"0 0 1 1\"></svg>\n"))
	require.NoError(t, err)
	assert.Contains(t, got, `const markup = "<svg viewBox=\"0 0 1 1\"></svg>";`)
	assert.Contains(t, got, "export default function SvgComponent(props)")
}

func TestSassArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--no-source-map", "--load-path=/p/src", "--load-path=node_modules", "/p/src/style.scss"},
		sassArgs("/p/src/style.scss", false))
	assert.Contains(t, sassArgs("/p/src/style.scss", true), "--style=compressed")
}
