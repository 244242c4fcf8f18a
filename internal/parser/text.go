package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/layertree/internal/doctree"
)

const tabWidth = 4

// TextParser reads plain text as an outline. Blank lines and changes of
// indentation separate paragraphs; a paragraph indented deeper than the one
// before it nests under that one. Paragraphs with nested content become GROUP
// layers carrying their own text, the rest become TEXT layers.
type TextParser struct{}

type outlineItem struct {
	indent int
	lines  []string
	kids   []*outlineItem
}

func (it *outlineItem) text() string {
	return strings.Join(it.lines, "\n")
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	root := &outlineItem{indent: -1}
	stack := []*outlineItem{root}
	var cur *outlineItem

	flush := func() {
		if cur == nil {
			return
		}
		for len(stack) > 1 && stack[len(stack)-1].indent >= cur.indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.kids = append(parent.kids, cur)
		stack = append(stack, cur)
		cur = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		body := strings.TrimSpace(line)
		if body == "" {
			flush()
			continue
		}
		indent := indentWidth(line)
		if cur != nil && indent != cur.indent {
			flush()
		}
		if cur == nil {
			cur = &outlineItem{indent: indent}
		}
		cur.lines = append(cur.lines, body)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	flush()

	doc, page := newDocument(titleFromFilename(filename), filename)
	emitOutline(doc, page, root.kids)
	return doc, nil
}

func emitOutline(doc *doctree.Document, parent *doctree.Layer, items []*outlineItem) {
	for _, it := range items {
		if len(it.kids) == 0 {
			addText(doc, parent, it.text())
			continue
		}
		group := doctree.NewLayer(doc.NextID(), layerName(it.text()), doctree.TypeGroup).SetText(it.text())
		parent.Append(group)
		emitOutline(doc, group, it.kids)
	}
}

// indentWidth measures leading whitespace, counting a tab as tabWidth columns.
func indentWidth(line string) int {
	n := 0
	for _, c := range line {
		switch c {
		case ' ':
			n++
		case '\t':
			n += tabWidth
		default:
			return n
		}
	}
	return n
}
