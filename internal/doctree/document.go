package doctree

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Document is a loaded layer graph: a DOCUMENT root whose children are pages.
type Document struct {
	ID       string    // Workspace identifier
	Name     string    // Document title (from metadata or filename)
	Source   string    // Original filename
	LoadedAt time.Time // When the loader produced it

	root *Layer
	seq  atomic.Int64
}

// NewDocument creates an empty document with a DOCUMENT root layer "0:0".
func NewDocument(id, name string) *Document {
	return &Document{
		ID:       id,
		Name:     name,
		LoadedAt: time.Now(),
		root:     NewLayer("0:0", name, TypeDocument),
	}
}

// Root returns the DOCUMENT layer.
func (d *Document) Root() *Layer {
	return d.root
}

// NextID allocates a layer id unique within the document.
func (d *Document) NextID() string {
	return "1:" + strconv.FormatInt(d.seq.Add(1), 10)
}

// AddPage appends a new PAGE layer under the root.
func (d *Document) AddPage(name string) *Layer {
	page := NewLayer(d.NextID(), name, TypePage)
	d.root.Append(page)
	return page
}

// Pages returns the PAGE layers in order.
func (d *Document) Pages() []*Layer {
	var pages []*Layer
	for _, c := range d.root.children {
		if c.kind == TypePage {
			pages = append(pages, c)
		}
	}
	return pages
}

// TopLevel returns every page's direct children, page by page.
func (d *Document) TopLevel() []Node {
	var out []Node
	for _, p := range d.Pages() {
		for _, c := range p.children {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first layer with the given id, or nil.
func (d *Document) Find(id string) *Layer {
	var found *Layer
	d.each(func(l *Layer) bool {
		if l.id == id {
			found = l
			return false
		}
		return true
	})
	return found
}

// Count returns the number of distinct layers reachable from the root.
func (d *Document) Count() int {
	n := 0
	d.each(func(*Layer) bool {
		n++
		return true
	})
	return n
}

// each visits every distinct layer once, in pre-order, until fn returns false.
func (d *Document) each(fn func(*Layer) bool) {
	seen := make(map[*Layer]bool)
	var visit func(l *Layer) bool
	visit = func(l *Layer) bool {
		if seen[l] {
			return true
		}
		seen[l] = true
		if !fn(l) {
			return false
		}
		for _, c := range l.children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.root)
}
