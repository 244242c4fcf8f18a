package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/layertree/internal/doctree"
)

// exportNode is one node of a design export. A node carrying only Ref
// stands for the already declared node with that id, which is how exports
// express shared instances and back references.
type exportNode struct {
	ID         string         `json:"id" yaml:"id"`
	Ref        string         `json:"ref" yaml:"ref"`
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type" yaml:"type"`
	Visible    *bool          `json:"visible" yaml:"visible"`
	Characters string         `json:"characters" yaml:"characters"`
	Children   *[]*exportNode `json:"children" yaml:"children"`

	// Set on the file envelope {"name": ..., "document": {...}}.
	Document *exportNode `json:"document" yaml:"document"`
}

// ExportJSONParser loads a JSON design export.
type ExportJSONParser struct{}

func (p *ExportJSONParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	var n exportNode
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode json export: %w", err)
	}
	return buildExport(&n, filename)
}

// ExportYAMLParser loads the same export structure written as YAML.
type ExportYAMLParser struct{}

func (p *ExportYAMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	var n exportNode
	if err := yaml.NewDecoder(r).Decode(&n); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("decode yaml export: empty document")
		}
		return nil, fmt.Errorf("decode yaml export: %w", err)
	}
	return buildExport(&n, filename)
}

func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "CANVAS" {
		return doctree.TypePage
	}
	return t
}

type pendingChild struct {
	layer *doctree.Layer
	ref   string
}

type edge struct {
	parent *doctree.Layer
	kids   []pendingChild
}

// exportLoader builds layers in a first pass and attaches children in a
// second, so a ref may point at a node declared later in the file.
type exportLoader struct {
	doc      *doctree.Document
	declared map[string]bool
	index    map[string]*doctree.Layer
	edges    []edge
}

func buildExport(n *exportNode, filename string) (*doctree.Document, error) {
	name := n.Name
	root := n
	if n.Document != nil {
		root = n.Document
		if name == "" {
			name = root.Name
		}
	}
	if name == "" {
		name = titleFromFilename(filename)
	}

	doc := doctree.NewDocument("", name)
	doc.Source = filepath.Base(filename)
	ld := &exportLoader{
		doc:      doc,
		declared: make(map[string]bool),
		index:    make(map[string]*doctree.Layer),
	}
	collectIDs(root, ld.declared)

	switch normalizeType(root.Type) {
	case doctree.TypeDocument:
		if root.ID != "" {
			ld.index[root.ID] = doc.Root()
		}
		kids, err := ld.buildChildren(root)
		if err != nil {
			return nil, err
		}
		ld.edges = append(ld.edges, edge{parent: doc.Root(), kids: kids})
	case doctree.TypePage:
		page, err := ld.build(root)
		if err != nil {
			return nil, err
		}
		doc.Root().Append(page)
	default:
		page := doctree.NewLayer(ld.freshID(), "Page 1", doctree.TypePage)
		ld.index[page.ID()] = page
		l, err := ld.build(root)
		if err != nil {
			return nil, err
		}
		doc.Root().Append(page.Append(l))
	}

	if err := ld.link(); err != nil {
		return nil, err
	}
	return doc, nil
}

func collectIDs(n *exportNode, ids map[string]bool) {
	if n == nil {
		return
	}
	if n.ID != "" {
		ids[n.ID] = true
	}
	if n.Children == nil {
		return
	}
	for _, c := range *n.Children {
		collectIDs(c, ids)
	}
}

func (ld *exportLoader) freshID() string {
	for {
		id := ld.doc.NextID()
		if !ld.declared[id] && ld.index[id] == nil {
			return id
		}
	}
}

func (ld *exportLoader) build(n *exportNode) (*doctree.Layer, error) {
	id := n.ID
	if id == "" {
		id = ld.freshID()
	}
	if _, dup := ld.index[id]; dup {
		return nil, fmt.Errorf("duplicate layer id %q", id)
	}

	l := doctree.NewLayer(id, n.Name, normalizeType(n.Type))
	if n.Visible != nil {
		l.SetVisible(*n.Visible)
	}
	l.SetText(n.Characters)
	ld.index[id] = l

	if n.Children != nil {
		kids, err := ld.buildChildren(n)
		if err != nil {
			return nil, err
		}
		ld.edges = append(ld.edges, edge{parent: l, kids: kids})
	}
	return l, nil
}

func (ld *exportLoader) buildChildren(n *exportNode) ([]pendingChild, error) {
	if n.Children == nil {
		return nil, nil
	}
	kids := make([]pendingChild, 0, len(*n.Children))
	for _, c := range *n.Children {
		if c == nil {
			continue
		}
		if c.Ref != "" {
			kids = append(kids, pendingChild{ref: c.Ref})
			continue
		}
		l, err := ld.build(c)
		if err != nil {
			return nil, err
		}
		kids = append(kids, pendingChild{layer: l})
	}
	return kids, nil
}

// link attaches children in declaration order. An explicit empty children
// list still gives the parent a children relation.
func (ld *exportLoader) link() error {
	for _, e := range ld.edges {
		if len(e.kids) == 0 {
			e.parent.Append()
			continue
		}
		for _, k := range e.kids {
			if k.layer != nil {
				e.parent.Append(k.layer)
				continue
			}
			target, ok := ld.index[k.ref]
			if !ok {
				return fmt.Errorf("layer %q: unresolved child ref %q", e.parent.ID(), k.ref)
			}
			e.parent.Link(target)
		}
	}
	return nil
}
