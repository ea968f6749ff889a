// Package conventions maps page names, as listed in the configuration and
// exported by the server bundle, to HTTP routes.
package conventions

import (
	"fmt"
	"strings"
)

// PageToURLPattern converts a page name to a chi URL pattern. Dots become
// path separators, $param becomes {param}, and the name "index" maps to "/".
//
// Examples:
//
//	"index"           → "/"
//	"dashboard"       → "/dashboard"
//	"users.$id"       → "/users/{id}"
//	"users.$id.edit"  → "/users/{id}/edit"
//	"docs.index"      → "/docs"
func PageToURLPattern(name string) string {
	if name == "index" {
		return "/"
	}
	name = strings.TrimSuffix(name, ".index")

	segments := strings.Split(name, ".")
	for i, seg := range segments {
		if strings.HasPrefix(seg, "$") {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// ValidatePageName reports why name cannot be used as a page, or nil.
func ValidatePageName(name string) error {
	if name == "" {
		return fmt.Errorf("page name is empty")
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" || seg == "$" {
			return fmt.Errorf("page %q: empty segment", name)
		}
		if strings.ContainsAny(seg, "/{}?#") {
			return fmt.Errorf("page %q: segment %q has reserved characters", name, seg)
		}
	}
	return nil
}
