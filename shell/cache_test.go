package shell

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafbgarcia/ssrshim"
)

// countingFS counts Open calls for a single file.
type countingFS struct {
	fs.FS
	name  string
	opens atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	if name == c.name {
		c.opens.Add(1)
	}
	return c.FS.Open(name)
}

func TestLoadReadsOnce(t *testing.T) {
	fsys := &countingFS{
		FS:   fstest.MapFS{"index.html": {Data: []byte(page)}},
		name: "index.html",
	}
	c := NewCache(fsys, "index.html")

	for range 3 {
		tmpl, err := c.Load()
		require.NoError(t, err)
		assert.True(t, tmpl.Has(SlotHead))
	}
	assert.EqualValues(t, 1, fsys.opens.Load())
}

func TestLoadFailureIsPermanent(t *testing.T) {
	fsys := &countingFS{
		FS:   fstest.MapFS{"other.html": {Data: []byte(page)}},
		name: "index.html",
	}
	c := NewCache(fsys, "index.html")

	for range 3 {
		tmpl, err := c.Load()
		assert.Nil(t, tmpl)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	}
	assert.EqualValues(t, 1, fsys.opens.Load())
}

func TestLoadEmptyShellFails(t *testing.T) {
	for _, data := range []string{"", " \n\t\n"} {
		fsys := &countingFS{
			FS:   fstest.MapFS{"index.html": {Data: []byte(data)}},
			name: "index.html",
		}
		c := NewCache(fsys, "index.html")

		for range 2 {
			tmpl, err := c.Load()
			assert.Nil(t, tmpl)
			assert.ErrorIs(t, err, ErrEmptyShell)
		}
		assert.EqualValues(t, 1, fsys.opens.Load())
	}
}

func TestLoadConcurrentColdStart(t *testing.T) {
	fsys := &countingFS{
		FS:   fstest.MapFS{"index.html": {Data: []byte(page)}},
		name: "index.html",
	}
	c := NewCache(fsys, "index.html")

	var wg sync.WaitGroup
	results := make([]*Template, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tmpl, err := c.Load()
			assert.NoError(t, err)
			results[i] = tmpl
		}()
	}
	wg.Wait()

	for _, tmpl := range results {
		assert.Same(t, results[0], tmpl)
	}
	assert.EqualValues(t, 1, fsys.opens.Load())
}

func TestLoadAmbiguousShellFails(t *testing.T) {
	fsys := fstest.MapFS{"index.html": {Data: []byte("<title>a</title><title>b</title>")}}
	_, err := NewCache(fsys, "index.html").Load()
	assert.ErrorIs(t, err, ErrAmbiguousSlot)
}

func TestLoadFailureListsDirectory(t *testing.T) {
	var buf bytes.Buffer
	log := ssrshim.NewLoggerTo(&buf, ssrshim.ParseLevel("debug"))
	fsys := fstest.MapFS{
		"deploy/app.js":    {Data: []byte("")},
		"deploy/style.css": {Data: []byte("")},
	}

	_, err := NewCache(fsys, "deploy/index.html", WithLogger(log)).Load()
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "shell directory contents")
	assert.Contains(t, out, "app.js")
	assert.Contains(t, out, "style.css")
}

func TestNewFileCache(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte(`<title>X</title><div id="root"></div>`), 0644))

	c, err := NewFileCache(file, WithMountID("root"))
	require.NoError(t, err)

	tmpl, err := c.Load()
	require.NoError(t, err)
	assert.True(t, tmpl.Has(SlotBody))
	assert.True(t, strings.HasPrefix(tmpl.Source(), "<title>X</title>"))
}
