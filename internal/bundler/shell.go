package bundler

import (
	"fmt"
	"html"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
)

// InjectTags adds a stylesheet link per style before </head> and a deferred
// script per script after them. Without a </head> the tags are prepended.
func InjectTags(page string, res Result) string {
	var tags strings.Builder
	for _, href := range res.Styles {
		fmt.Fprintf(&tags, `<link href="%s" rel="stylesheet">`, html.EscapeString(href))
	}
	for _, src := range res.Scripts {
		fmt.Fprintf(&tags, `<script defer src="%s"></script>`, html.EscapeString(src))
	}

	i := strings.LastIndex(strings.ToLower(page), "</head>")
	if i < 0 {
		return tags.String() + page
	}
	return page[:i] + tags.String() + page[i:]
}

// MinifyHTML minifies a shell while keeping the structure the server splices
// into: document tags, end tags and attribute quotes.
func MinifyHTML(page string) (string, error) {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m.String("text/html", page)
}

// WriteShell renders IndexHTML with the client's tags into OutputDir.
func WriteShell(c Config, res Result) error {
	src, err := os.ReadFile(c.abs(c.IndexHTML))
	if err != nil {
		return fmt.Errorf("bundler: read shell template: %w", err)
	}
	page := InjectTags(string(src), res)
	if c.Production {
		if page, err = MinifyHTML(page); err != nil {
			return fmt.Errorf("bundler: minify shell: %w", err)
		}
	}
	out := c.abs(c.ShellFile())
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("bundler: create %s: %w", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, []byte(page), 0644); err != nil {
		return fmt.Errorf("bundler: write shell: %w", err)
	}
	return nil
}

// cleanDir removes everything inside dir except the named top-level entries.
// A missing dir is not an error.
func cleanDir(dir string, keep ...string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bundler: clean %s: %w", dir, err)
	}
	for _, e := range entries {
		if contains(keep, e.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("bundler: clean %s: %w", dir, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// copyAssets copies AssetsDir and ExtraFiles into OutputDir.
func copyAssets(c Config) error {
	out := c.abs(c.OutputDir)
	if c.AssetsDir != "" {
		src := c.abs(c.AssetsDir)
		if _, err := os.Stat(src); err == nil {
			if err := copyTree(src, out); err != nil {
				return fmt.Errorf("bundler: copy assets: %w", err)
			}
		}
	}
	for _, f := range c.ExtraFiles {
		if err := copyFile(c.abs(f), filepath.Join(out, filepath.Base(f))); err != nil {
			return fmt.Errorf("bundler: copy %s: %w", f, err)
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
