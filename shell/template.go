// Package shell loads the static HTML page skeleton once and splices
// server-rendered output into its named slots.
package shell

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
)

// Slot names a replaceable region of the shell.
type Slot string

const (
	// SlotHead is the <title>…</title> region. Its fill replaces the whole region.
	SlotHead Slot = "head"
	// SlotBody is the empty mount element. Its fill becomes the element's content.
	SlotBody Slot = "body"
)

// DefaultMountID is the id of the mount element looked up when none is configured.
const DefaultMountID = "app"

// ErrAmbiguousSlot is returned by Parse when a slot matches more than once.
var ErrAmbiguousSlot = errors.New("shell: slot matches more than once")

// ErrEmptyShell is returned by Cache.Load when the shell file has no content.
var ErrEmptyShell = errors.New("shell: file is empty")

var titleRe = regexp.MustCompile(`(?is)<title\b[^>]*>.*?</title\s*>`)

// Template is a parsed shell. It is immutable and safe for concurrent use.
type Template struct {
	src   string
	spans []span
}

type span struct {
	slot       Slot
	start, end int
	open       string // mount element opening tag; empty for SlotHead
	close      string
}

// Parse locates the head and body slots in src. A slot that is absent is
// simply never filled; a slot found more than once is an error.
func Parse(src, mountID string) (*Template, error) {
	if mountID == "" {
		mountID = DefaultMountID
	}
	t := &Template{src: src}

	heads := titleRe.FindAllStringIndex(src, -1)
	if len(heads) > 1 {
		return nil, fmt.Errorf("%w: %d <title> elements", ErrAmbiguousSlot, len(heads))
	}
	if len(heads) == 1 {
		t.spans = append(t.spans, span{slot: SlotHead, start: heads[0][0], end: heads[0][1]})
	}

	id := regexp.QuoteMeta(mountID)
	mountRe := regexp.MustCompile(`(?i)(<div\s+id\s*=\s*(?:"` + id + `"|'` + id + `'|` + id + `)\s*>)\s*(</div\s*>)`)
	mounts := mountRe.FindAllStringSubmatchIndex(src, -1)
	if len(mounts) > 1 {
		return nil, fmt.Errorf("%w: %d mount elements with id %q", ErrAmbiguousSlot, len(mounts), mountID)
	}
	if len(mounts) == 1 {
		m := mounts[0]
		t.spans = append(t.spans, span{
			slot:  SlotBody,
			start: m[0],
			end:   m[1],
			open:  src[m[2]:m[3]],
			close: src[m[4]:m[5]],
		})
	}

	sort.Slice(t.spans, func(i, j int) bool { return t.spans[i].start < t.spans[j].start })
	if len(t.spans) == 2 && t.spans[0].end > t.spans[1].start {
		return nil, fmt.Errorf("shell: head and body slots overlap")
	}
	return t, nil
}

// Has reports whether the shell contains the given slot.
func (t *Template) Has(s Slot) bool {
	for _, sp := range t.spans {
		if sp.slot == s {
			return true
		}
	}
	return false
}

// Source returns the unmodified shell text.
func (t *Template) Source() string {
	return t.src
}

// Execute writes the shell to w with each slot present in fill replaced.
// Slots missing from fill keep their original text.
func (t *Template) Execute(w io.Writer, fill map[Slot]string) error {
	pos := 0
	for _, sp := range t.spans {
		v, ok := fill[sp.slot]
		if !ok {
			continue
		}
		if _, err := io.WriteString(w, t.src[pos:sp.start]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, sp.open+v+sp.close); err != nil {
			return err
		}
		pos = sp.end
	}
	_, err := io.WriteString(w, t.src[pos:])
	return err
}
