// Package head models the document <head> content a page produces while it
// renders: title, meta and link tags, and an optional collected style sheet.
package head

import (
	"html"
	"strings"
)

// Attr is a single tag attribute. Tags keep attributes as an ordered list so
// rendering is deterministic.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Tag is a void head element such as <meta> or <link>.
type Tag []Attr

// Metadata is the head content returned by a render.
type Metadata struct {
	Title string `json:"title"`
	Meta  []Tag  `json:"meta,omitempty"`
	Link  []Tag  `json:"link,omitempty"`
	Style string `json:"-"`
}

// Meta builds a <meta> tag from alternating key/value pairs.
func Meta(kv ...string) Tag {
	return pairs(kv)
}

// Link builds a <link> tag from alternating key/value pairs.
func Link(kv ...string) Tag {
	return pairs(kv)
}

func pairs(kv []string) Tag {
	t := make(Tag, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, Attr{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

// Render returns the head block: the title followed by meta and link tags,
// one per line. The style sheet is appended only when withStyle is set and
// the metadata carries one.
func (m Metadata) Render(withStyle bool) string {
	var b strings.Builder
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(m.Title))
	b.WriteString("</title>")
	for _, t := range m.Meta {
		b.WriteString("\n")
		writeTag(&b, "meta", t)
	}
	for _, t := range m.Link {
		b.WriteString("\n")
		writeTag(&b, "link", t)
	}
	if withStyle && m.Style != "" {
		b.WriteString("\n<style>")
		// A closing tag inside the sheet would end the element early.
		b.WriteString(strings.ReplaceAll(m.Style, "</style", `<\/style`))
		b.WriteString("</style>")
	}
	return b.String()
}

func writeTag(b *strings.Builder, name string, t Tag) {
	b.WriteString("<")
	b.WriteString(name)
	for _, a := range t {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
}
