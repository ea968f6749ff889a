package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitBatch waits up to timeout for a batch of events on ch. Returns the batch
// and true, or nil and false if the timeout expires.
func waitBatch(ch <-chan []Event, timeout time.Duration) ([]Event, bool) {
	select {
	case batch := <-ch:
		return batch, true
	case <-time.After(timeout):
		return nil, false
	}
}

func startWatcher(t *testing.T, dir string, ignore ...string) <-chan []Event {
	t.Helper()
	events := make(chan []Event, 10)
	w := New(dir, ignore, func(batch []Event) { events <- batch })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return events
}

func TestFileKinds(t *testing.T) {
	tests := []struct {
		file string
		kind string
	}{
		{"index.js", "script"},
		{"App.jsx", "script"},
		{"App.tsx", "script"},
		{"readme.md", "script"},
		{"logo.svg", "script"},
		{"style.scss", "style"},
		{"main.css", "style"},
		{"index.html", "shell"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			dir := t.TempDir()
			events := startWatcher(t, dir)

			os.WriteFile(filepath.Join(dir, tt.file), []byte("x"), 0644)

			batch, ok := waitBatch(events, 2*time.Second)
			if !ok {
				t.Fatalf("expected event for %s, got none", tt.file)
			}
			if batch[0].Kind != tt.kind {
				t.Fatalf("expected kind %q, got %q", tt.kind, batch[0].Kind)
			}
		})
	}
}

func TestBatchesBurst(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir)

	os.WriteFile(filepath.Join(dir, "a.js"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(dir, "b.css"), []byte("b"), 0644)

	batch, ok := waitBatch(events, 2*time.Second)
	if !ok {
		t.Fatal("expected a batch, got none")
	}
	if len(batch) < 2 {
		t.Fatalf("expected both changes in one batch, got %v", batch)
	}
}

func TestUnknownExtensionIgnored(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir)

	// Go sources are not part of the bundle and should NOT produce an event.
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644)

	if _, ok := waitBatch(events, 500*time.Millisecond); ok {
		t.Fatal("expected no event for .go file, but got one")
	}
}

func TestIgnoredDirectories(t *testing.T) {
	dir := t.TempDir()

	// Create ignored directories before starting the watcher.
	names := []string{".ssrshim", ".git", "node_modules", "deploy"}
	for _, name := range names {
		os.MkdirAll(filepath.Join(dir, name), 0755)
	}

	events := startWatcher(t, dir, "deploy")

	for _, name := range names {
		os.WriteFile(filepath.Join(dir, name, "app.js"), []byte("x"), 0644)
	}

	if _, ok := waitBatch(events, 500*time.Millisecond); ok {
		t.Fatal("expected no event for files in ignored directories, but got one")
	}
}

func TestNewSubdirectoryWatched(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir)

	// Create a new subdirectory, then write a file inside it.
	subdir := filepath.Join(dir, "src", "pages")
	os.MkdirAll(subdir, 0755)

	// Give the watcher time to register the new directory.
	time.Sleep(200 * time.Millisecond)

	os.WriteFile(filepath.Join(subdir, "home.jsx"), []byte("export default 1"), 0644)

	batch, ok := waitBatch(events, 2*time.Second)
	if !ok {
		t.Fatal("expected event for file in new subdirectory, got none")
	}
	if batch[len(batch)-1].Kind != "script" {
		t.Fatalf("expected kind %q, got %q", "script", batch[len(batch)-1].Kind)
	}
}
