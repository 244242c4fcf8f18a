package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/layertree/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark. Headings become
// nested SECTION layers; paragraphs and code blocks become TEXT layers and
// lists become a GROUP with one TEXT layer per item.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	doc, page := newDocument(titleFromFilename(filename), filename)
	secs := newSections(doc, page)

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			secs.open(blockText(node, src), node.Level)
		case *ast.List:
			name := "List"
			if node.IsOrdered() {
				name = "Ordered list"
			}
			group := doctree.NewLayer(doc.NextID(), name, doctree.TypeGroup)
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if t := blockText(item, src); t != "" {
					addText(doc, group, t)
				}
			}
			secs.top().Append(group)
		default:
			if t := blockText(n, src); t != "" {
				addText(doc, secs.top(), t)
			}
		}
	}

	return doc, nil
}

// blockText gets the text content of a goldmark block. Code and raw HTML
// keep their lines verbatim; everything else is the concatenated inline text.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	switch n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimRight(buf.String(), "\n")
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			if c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(blockText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
