package bundler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/yuin/goldmark"
)

// markdownPlugin compiles .md imports to a module whose default export is
// the rendered HTML string.
func markdownPlugin() api.Plugin {
	md := goldmark.New()
	return api.Plugin{
		Name: "markdown",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.md$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents, err := markdownModule(md, src)
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("markdown %s: %w", args.Path, err)
				}
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}

func markdownModule(md goldmark.Markdown, src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	html, err := jsString(buf.String())
	if err != nil {
		return "", err
	}
	return "export default " + html + ";\n", nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

const svgNamespace = "svg-component"

var scriptImporter = regexp.MustCompile(`\.[jt]sx?$`)

// svgComponentPlugin turns .svg files imported from scripts into React
// components. Svg referenced from CSS keeps the file loader.
func svgComponentPlugin() api.Plugin {
	return api.Plugin{
		Name: "svg-component",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `\.svg$`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if !scriptImporter.MatchString(args.Importer) {
					return api.OnResolveResult{}, nil
				}
				path := args.Path
				if !filepath.IsAbs(path) {
					path = filepath.Join(args.ResolveDir, path)
				}
				return api.OnResolveResult{Path: path, Namespace: svgNamespace}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: svgNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents, err := svgModule(src)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderJS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}

func svgModule(src []byte) (string, error) {
	markup, err := jsString(string(bytes.TrimSpace(src)))
	if err != nil {
		return "", err
	}
	return `import * as React from "react";
const markup = ` + markup + `;
export default function SvgComponent(props) {
  return React.createElement("span", Object.assign({}, props, { dangerouslySetInnerHTML: { __html: markup } }));
}
`, nil
}

// sassPlugin compiles .scss and .sass files with the sass command line tool.
func sassPlugin(binary string, production bool) api.Plugin {
	return api.Plugin{
		Name: "sass",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.s[ac]ss$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				css, err := compileSass(binary, args.Path, production)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return api.OnLoadResult{
					Contents:   &css,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}

func sassArgs(path string, production bool) []string {
	args := []string{"--no-source-map", "--load-path=" + filepath.Dir(path), "--load-path=node_modules"}
	if production {
		args = append(args, "--style=compressed")
	}
	return append(args, path)
}

func compileSass(binary, path string, production bool) (string, error) {
	if binary == "" {
		binary = "sass"
	}
	cmd := exec.Command(binary, sassArgs(path, production)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sass %s: %w\n%s", path, err, stderr.String())
	}
	return stdout.String(), nil
}
