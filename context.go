package ssrshim

import (
	"context"
	"net/http"
)

// Context is the request-scoped context passed to page components while they render.
type Context struct {
	Log     *Logger
	Request *http.Request
}

// NewContext creates a new Context for the given HTTP request.
func NewContext(r *http.Request, log *Logger) *Context {
	if log == nil {
		log = NewLogger()
	}
	return &Context{
		Log:     log,
		Request: r,
	}
}

// Context returns the request's context.Context, or context.Background when
// there is no request.
func (c *Context) Context() context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
