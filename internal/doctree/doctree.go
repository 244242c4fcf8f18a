// Package doctree models the externally owned layer graph the walker reads.
package doctree

import (
	"slices"
	"strings"
)

// Node type tags. The set mirrors what design tools export; unknown tags pass through.
const (
	TypeDocument     = "DOCUMENT"
	TypePage         = "PAGE"
	TypeFrame        = "FRAME"
	TypeGroup        = "GROUP"
	TypeSection      = "SECTION"
	TypeComponent    = "COMPONENT"
	TypeComponentSet = "COMPONENT_SET"
	TypeInstance     = "INSTANCE"
	TypeBooleanOp    = "BOOLEAN_OPERATION"
	TypeText         = "TEXT"
	TypeRectangle    = "RECTANGLE"
	TypeImage        = "IMAGE"
	TypeVector       = "VECTOR"
)

// PathSeparator joins ancestor names in a full path.
const PathSeparator = " / "

// Node is the read-only capability the walker needs from a host node.
// Implementations may violate tree shape; callers must not assume acyclicity.
type Node interface {
	ID() string
	Name() string
	Type() string
	Visible() bool
	// Text returns the text content of text-bearing nodes, "" otherwise.
	Text() string
	// Children reports false when the node type has no children concept at all.
	Children() ([]Node, bool)
	// Parent returns nil at the top of the graph.
	Parent() Node
}

var containerKinds = map[string]bool{
	TypeDocument:     true,
	TypePage:         true,
	TypeFrame:        true,
	TypeGroup:        true,
	TypeSection:      true,
	TypeComponent:    true,
	TypeComponentSet: true,
	TypeInstance:     true,
	TypeBooleanOp:    true,
}

// HasChildrenConcept reports whether nodes of this kind carry a children relation.
func HasChildrenConcept(kind string) bool {
	return containerKinds[kind]
}

// Layer is the in-memory Node implementation built by the loaders.
type Layer struct {
	id        string
	name      string
	kind      string
	visible   bool
	text      string
	container bool
	children  []*Layer
	parent    *Layer
}

// NewLayer creates a visible layer with no parent.
func NewLayer(id, name, kind string) *Layer {
	return &Layer{
		id:        id,
		name:      name,
		kind:      kind,
		visible:   true,
		container: HasChildrenConcept(kind),
	}
}

func (l *Layer) ID() string    { return l.id }
func (l *Layer) Name() string  { return l.name }
func (l *Layer) Type() string  { return l.kind }
func (l *Layer) Visible() bool { return l.visible }

// Text returns characters only for TEXT layers.
func (l *Layer) Text() string {
	if l.kind != TypeText {
		return ""
	}
	return l.text
}

func (l *Layer) Children() ([]Node, bool) {
	if !l.container {
		return nil, false
	}
	out := make([]Node, 0, len(l.children))
	for _, c := range l.children {
		out = append(out, c)
	}
	return out, true
}

func (l *Layer) Parent() Node {
	if l.parent == nil {
		return nil
	}
	return l.parent
}

// SetVisible sets visibility and returns the layer for chaining.
func (l *Layer) SetVisible(v bool) *Layer {
	l.visible = v
	return l
}

// SetText sets the characters of a text layer.
func (l *Layer) SetText(s string) *Layer {
	l.text = s
	return l
}

// SetName renames the layer.
func (l *Layer) SetName(name string) *Layer {
	l.name = name
	return l
}

// Append adds children and makes l their parent.
func (l *Layer) Append(children ...*Layer) *Layer {
	l.container = true
	for _, c := range children {
		if c == nil {
			continue
		}
		c.parent = l
		l.children = append(l.children, c)
	}
	return l
}

// Link adds child by reference and leaves its parent untouched, so the
// same layer can appear under several parents or under its own subtree.
func (l *Layer) Link(child *Layer) *Layer {
	l.container = true
	if child == nil {
		return l
	}
	l.children = append(l.children, child)
	return l
}

// Kids returns the concrete child layers.
func (l *Layer) Kids() []*Layer {
	return l.children
}

// Path returns the names from the page boundary (exclusive) down to n,
// joined by PathSeparator. A parent chain that loops is cut at the first repeat.
func Path(n Node) string {
	names := []string{n.Name()}
	seen := map[string]bool{n.ID(): true}
	for p := n.Parent(); p != nil && p.Type() != TypePage; p = p.Parent() {
		if seen[p.ID()] {
			break
		}
		seen[p.ID()] = true
		names = append(names, p.Name())
	}
	slices.Reverse(names)
	return strings.Join(names, PathSeparator)
}
