package shell

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/rafbgarcia/ssrshim"
)

// Cache reads and parses the shell file on first use and keeps the outcome,
// success or failure, for the rest of the process. There is no refresh.
type Cache struct {
	fsys    fs.FS
	name    string
	mountID string
	log     *ssrshim.Logger

	once sync.Once
	tmpl *Template
	err  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithMountID sets the id of the mount element.
func WithMountID(id string) Option {
	return func(c *Cache) { c.mountID = id }
}

// WithLogger sets the logger used to report the load outcome.
func WithLogger(log *ssrshim.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// NewCache creates a Cache for the file name inside fsys. Nothing is read
// until the first Load.
func NewCache(fsys fs.FS, name string, opts ...Option) *Cache {
	c := &Cache{
		fsys:    fsys,
		name:    name,
		mountID: DefaultMountID,
		log:     ssrshim.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFileCache creates a Cache for a path on the local filesystem.
func NewFileCache(file string, opts ...Option) (*Cache, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("shell: resolve %s: %w", file, err)
	}
	return NewCache(os.DirFS(filepath.Dir(abs)), filepath.Base(abs), opts...), nil
}

// Load returns the parsed shell. Concurrent first callers wait for the same
// read and all observe its result.
func (c *Cache) Load() (*Template, error) {
	c.once.Do(c.load)
	return c.tmpl, c.err
}

func (c *Cache) load() {
	data, err := fs.ReadFile(c.fsys, c.name)
	if err != nil {
		c.err = fmt.Errorf("shell: read %s: %w", c.name, err)
		c.log.Error("reading shell failed", "file", c.name, "error", err)
		c.logDir()
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.err = fmt.Errorf("shell: read %s: %w", c.name, ErrEmptyShell)
		c.log.Error("shell has no contents", "file", c.name)
		return
	}
	tmpl, err := Parse(string(data), c.mountID)
	if err != nil {
		c.err = fmt.Errorf("shell: parse %s: %w", c.name, err)
		c.log.Error("parsing shell failed", "file", c.name, "error", err)
		return
	}
	if !tmpl.Has(SlotHead) {
		c.log.Warn("shell has no <title> element, head metadata will not be spliced", "file", c.name)
	}
	c.log.Info("shell loaded", "file", c.name, "bytes", len(data))
	c.tmpl = tmpl
}

// logDir lists the shell's directory at DEBUG level to help locate a
// misplaced file.
func (c *Cache) logDir() {
	dir := path.Dir(c.name)
	entries, err := fs.ReadDir(c.fsys, dir)
	if err != nil {
		c.log.Debug("listing shell directory failed", "dir", dir, "error", err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	c.log.Debug("shell directory contents", "dir", dir, "entries", names)
}
