package share

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-rod/rod"
)

// browserPayload is the JSON shape handed to the page; file bytes travel as base64.
type browserPayload struct {
	Text  string        `json:"text"`
	Title string        `json:"title"`
	URL   string        `json:"url"`
	Files []browserFile `json:"files,omitempty"`
}

type browserFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// buildData turns a browserPayload back into Web Share API data inside the page.
const buildData = `function toData(p) {
	const data = { text: p.text, title: p.title, url: p.url };
	if (p.files && p.files.length) {
		data.files = p.files.map(f => {
			const bytes = Uint8Array.from(atob(f.data), c => c.charCodeAt(0));
			return new File([bytes], f.name, { type: f.type });
		});
	}
	return data;
}`

const canShareJS = `(p) => {
	` + buildData + `
	return typeof navigator !== "undefined" && !!navigator.canShare && navigator.canShare(toData(p));
}`

// navigator.share's promise is not awaited; the dialog outcome is not reported.
const shareJS = `(p) => {
	` + buildData + `
	navigator.share(toData(p)).catch(() => {});
	return true;
}`

// BrowserSharer shares through the Web Share API of a live browser page.
type BrowserSharer struct {
	page *rod.Page
}

// NewBrowserSharer returns a Sharer backed by page.
func NewBrowserSharer(page *rod.Page) *BrowserSharer {
	return &BrowserSharer{page: page}
}

// CanShare asks the page's navigator.canShare. Any evaluation error counts as no.
func (b *BrowserSharer) CanShare(ctx context.Context, p Payload) bool {
	res, err := b.page.Context(ctx).Eval(canShareJS, toBrowser(p))
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// Share calls navigator.share as if triggered by a user gesture, which the
// API requires.
func (b *BrowserSharer) Share(ctx context.Context, p Payload) error {
	_, err := b.page.Context(ctx).Evaluate(rod.Eval(shareJS, toBrowser(p)).ByUser())
	if err != nil {
		return fmt.Errorf("share: navigator.share: %w", err)
	}
	return nil
}

func toBrowser(p Payload) browserPayload {
	out := browserPayload{Text: p.Text, Title: p.Title, URL: p.URL}
	for _, f := range p.Files {
		out.Files = append(out.Files, browserFile{
			Name: f.Name,
			Type: f.ContentType,
			Data: base64.StdEncoding.EncodeToString(f.Data),
		})
	}
	return out
}
