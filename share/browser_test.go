package share

import (
	"context"
	"testing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
)

func newPage(t *testing.T) *rod.Page {
	t.Helper()
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no browser available")
	}
	u := launcher.New().Headless(true).MustLaunch()
	browser := rod.New().ControlURL(u).MustConnect()
	t.Cleanup(func() { browser.MustClose() })
	return browser.MustPage("about:blank")
}

// stubShare replaces the Web Share API with one that records what it received.
func stubShare(page *rod.Page, acceptFiles bool) {
	page.MustEval(`(acceptFiles) => {
		window.__shared = [];
		Object.defineProperty(navigator, "canShare", {
			configurable: true,
			value: (d) => acceptFiles || !d.files,
		});
		Object.defineProperty(navigator, "share", {
			configurable: true,
			value: (d) => { window.__shared.push({ files: (d.files || []).map(f => f.name + ":" + f.type + ":" + f.size) }); return Promise.resolve(); },
		});
	}`, acceptFiles)
}

func TestBrowserSharerSharesFiles(t *testing.T) {
	page := newPage(t)
	stubShare(page, true)
	s := NewBrowserSharer(page)

	p := Payload{Title: "Report", Files: []File{{Name: "a.txt", ContentType: "text/plain", Data: []byte("hello")}}}
	assert.True(t, s.CanShare(context.Background(), p))
	assert.NoError(t, s.Share(context.Background(), p))

	got := page.MustEval(`() => window.__shared[0].files[0]`).String()
	assert.Equal(t, "a.txt:text/plain:5", got)
}

func TestBrowserSharerRejectsFiles(t *testing.T) {
	page := newPage(t)
	stubShare(page, false)
	s := NewBrowserSharer(page)

	assert.False(t, s.CanShare(context.Background(), Payload{Files: []File{{Name: "a.txt"}}}))
	assert.True(t, s.CanShare(context.Background(), Payload{URL: "https://example.com"}))
}

func TestBrowserSharerWithoutAPI(t *testing.T) {
	page := newPage(t)
	page.MustEval(`() => { Object.defineProperty(navigator, "canShare", { configurable: true, value: undefined }); }`)

	assert.False(t, NewBrowserSharer(page).CanShare(context.Background(), Payload{URL: "https://example.com"}))
}
