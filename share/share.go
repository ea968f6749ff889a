// Package share hands a remote file to a native share dialog, degrading to a
// link-only share and then to nothing when the platform cannot do better.
package share

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rafbgarcia/ssrshim"
)

// Descriptor describes a file-plus-link share request.
type Descriptor struct {
	FileURL     string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Text        string `json:"text"`
	Title       string `json:"title"`
	URL         string `json:"url"`
}

// File is a fetched file ready to be shared.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Payload is what a Sharer is asked to share. Files is empty for a
// link-only share.
type Payload struct {
	Text  string
	Title string
	URL   string
	Files []File
}

// Sharer is a platform sharing capability.
type Sharer interface {
	CanShare(ctx context.Context, p Payload) bool
	Share(ctx context.Context, p Payload) error
}

// Helper shares files through a Sharer.
type Helper struct {
	sharer Sharer
	client *http.Client
	log    *ssrshim.Logger
}

// Option configures a Helper.
type Option func(*Helper)

// WithHTTPClient sets the client used to fetch files.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Helper) { h.client = c }
}

// WithLogger sets the logger failures are reported to.
func WithLogger(log *ssrshim.Logger) Option {
	return func(h *Helper) { h.log = log }
}

// New creates a Helper. A nil sharer means the platform cannot share at all.
func New(sharer Sharer, opts ...Option) *Helper {
	h := &Helper{
		sharer: sharer,
		client: http.DefaultClient,
		log:    ssrshim.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ShareFile fetches d.FileURL and shares it along with the link. It reports
// whether a share was invoked; failures are logged, never returned.
func (h *Helper) ShareFile(ctx context.Context, d Descriptor) bool {
	h.log.Debug("sharing file", "url", d.FileURL, "name", d.FileName)
	link := Payload{Text: d.Text, Title: d.Title, URL: d.URL}

	if h.sharer == nil {
		return false
	}

	file, err := h.fetch(ctx, d)
	if err != nil {
		h.log.Warn("fetching shared file failed", "url", d.FileURL, "error", err)
		return h.shareLink(ctx, link)
	}

	withFiles := link
	withFiles.Files = []File{file}
	if h.sharer.CanShare(ctx, withFiles) {
		if err := h.sharer.Share(ctx, withFiles); err != nil {
			h.log.Warn("sharing file failed", "name", d.FileName, "error", err)
			return h.shareLink(ctx, link)
		}
		return true
	}
	return h.shareLink(ctx, link)
}

// shareLink shares the link-only payload if the platform supports it.
func (h *Helper) shareLink(ctx context.Context, link Payload) bool {
	if h.sharer == nil || !h.sharer.CanShare(ctx, link) {
		return false
	}
	if err := h.sharer.Share(ctx, link); err != nil {
		h.log.Warn("sharing link failed", "url", link.URL, "error", err)
	}
	return true
}

func (h *Helper) fetch(ctx context.Context, d Descriptor) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.FileURL, nil)
	if err != nil {
		return File{}, fmt.Errorf("share: build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("share: GET %s: %w", d.FileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return File{}, fmt.Errorf("share: GET %s: status %d", d.FileURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return File{}, fmt.Errorf("share: read %s: %w", d.FileURL, err)
	}
	return File{Name: d.FileName, ContentType: d.ContentType, Data: data}, nil
}
