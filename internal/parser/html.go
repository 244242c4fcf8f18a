package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/layertree/internal/doctree"
)

// HTMLParser handles HTML files. The <body> becomes a PAGE, block elements
// become FRAME layers named like CSS selectors, and elements holding only
// inline content become TEXT layers. Hidden elements are kept but marked
// invisible.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromFilename(filename)
	// Extract title from <title> tag if present.
	if t := findTitle(root); t != "" {
		title = t
	}
	doc, page := newDocument(title, filename)

	body := findBody(root)
	if body == nil {
		body = root
	}
	b := &htmlBuilder{doc: doc}
	b.children(body, page)
	return doc, nil
}

type htmlBuilder struct {
	doc *doctree.Document
}

// children converts n's child nodes into layers under parent.
func (b *htmlBuilder) children(n *html.Node, parent *doctree.Layer) {
	var pending strings.Builder
	flush := func() {
		if t := collapse(pending.String()); t != "" {
			addText(b.doc, parent, t)
		}
		pending.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			pending.WriteString(c.Data)
		case html.ElementNode:
			if skipElement(c.Data) {
				continue
			}
			if inlineTags[c.Data] && !isHidden(c) {
				pending.WriteString(textContent(c))
				continue
			}
			flush()
			b.element(c, parent)
		}
	}
	flush()
}

func (b *htmlBuilder) element(n *html.Node, parent *doctree.Layer) {
	var l *doctree.Layer
	switch {
	case n.Data == "img":
		name := attr(n, "alt")
		if name == "" {
			name = selector(n)
		}
		l = doctree.NewLayer(b.doc.NextID(), name, doctree.TypeImage)
	case inlineOnly(n):
		t := textContent(n)
		if t == "" {
			l = doctree.NewLayer(b.doc.NextID(), selector(n), doctree.TypeFrame)
		} else {
			l = doctree.NewLayer(b.doc.NextID(), layerName(t), doctree.TypeText).SetText(t)
		}
	default:
		l = doctree.NewLayer(b.doc.NextID(), selector(n), doctree.TypeFrame)
		b.children(n, l)
	}
	if isHidden(n) {
		l.SetVisible(false)
	}
	parent.Append(l)
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "br": true, "cite": true, "code": true,
	"em": true, "i": true, "kbd": true, "mark": true, "q": true, "s": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true,
	"time": true, "u": true,
}

func skipElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "head", "meta", "link":
		return true
	}
	return false
}

// inlineOnly reports whether n holds nothing but text and inline elements.
func inlineOnly(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if !inlineTags[c.Data] || !inlineOnly(c) {
			return false
		}
	}
	return true
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// selector names an element tag#id, tag.class or tag.
func selector(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return n.Data + "#" + id
	}
	if classes := strings.Fields(attr(n, "class")); len(classes) > 0 {
		return n.Data + "." + classes[0]
	}
	return n.Data
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapse(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
