// Package router provides the HTTP router used by the ssrshim server.
// It wraps chi and bridges chi URL params to Go's Request.PathValue() so
// page components can call ctx.Request.PathValue("id") transparently.
package router

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Router is the HTTP router for ssrshim servers.
type Router struct {
	mux chi.Router
}

// New creates a Router with the PathValue bridge middleware applied.
func New() *Router {
	mux := chi.NewRouter()

	// Bridge chi URL params to Go's Request.PathValue() so components
	// can call ctx.Request.PathValue("id") regardless of the router.
	mux.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rctx := chi.RouteContext(req.Context())
			for i, key := range rctx.URLParams.Keys {
				req.SetPathValue(key, rctx.URLParams.Values[i])
			}
			next.ServeHTTP(w, req)
		})
	})

	return &Router{mux: mux}
}

// Use appends middlewares to the stack. It must be called before any route
// is registered.
func (r *Router) Use(middlewares ...func(http.Handler) http.Handler) {
	r.mux.Use(middlewares...)
}

// Get registers a handler for GET requests at the given pattern.
func (r *Router) Get(pattern string, handler http.HandlerFunc) {
	r.mux.Get(pattern, handler)
}

// Handle registers an http.Handler at the given pattern.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// Page registers a page handler for GET and HEAD at pattern.
func (r *Router) Page(pattern string, handler http.Handler) {
	r.mux.Method(http.MethodGet, pattern, handler)
	r.mux.Method(http.MethodHead, pattern, handler)
}

// Static serves files from dir under prefix, e.g. Static("/assets", "deploy").
// Entries named in hidden (paths relative to dir, like "api" or "index.html")
// and directories answer 404.
func (r *Router) Static(prefix, dir string, hidden ...string) {
	prefix = "/" + strings.Trim(prefix, "/")
	files := http.FileServer(filesOnly{fs: http.Dir(dir), hidden: hidden})
	h := http.StripPrefix(strings.TrimSuffix(prefix, "/"), files)
	if prefix == "/" {
		r.mux.Handle("/*", h)
		return
	}
	r.mux.Handle(prefix+"/*", h)
}

// filesOnly exposes the regular files of fs, minus hidden entries.
type filesOnly struct {
	fs     http.FileSystem
	hidden []string
}

func (f filesOnly) Open(name string) (http.File, error) {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	for _, h := range f.hidden {
		h = strings.Trim(path.Clean("/"+h), "/")
		if clean == h || strings.HasPrefix(clean, h+"/") {
			return nil, fs.ErrNotExist
		}
	}
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
