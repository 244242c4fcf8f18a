// Package parser loads files into layer graphs the walker can traverse.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/layertree/internal/doctree"
)

// Parser converts raw file bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Config carries loader settings.
type Config struct {
	// PDFFallback shells out to pdftotext when the Go PDF reader fails.
	PDFFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, cfg Config) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &ExportJSONParser{}, nil
	case ".yaml", ".yml":
		return &ExportYAMLParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: cfg.PDFFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips directories and the extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// newDocument creates a document with a single page named after it.
func newDocument(title, filename string) (*doctree.Document, *doctree.Layer) {
	doc := doctree.NewDocument("", title)
	doc.Source = filepath.Base(filename)
	return doc, doc.AddPage(title)
}

const maxNameRunes = 32

// layerName derives a layer name from text content: the first line with
// whitespace collapsed, cut to maxNameRunes.
func layerName(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.Join(strings.Fields(line), " ")
	if utf8.RuneCountInString(line) <= maxNameRunes {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxNameRunes])) + "…"
}

// addText appends a TEXT layer named after its content.
func addText(doc *doctree.Document, parent *doctree.Layer, text string) *doctree.Layer {
	l := doctree.NewLayer(doc.NextID(), layerName(text), doctree.TypeText).SetText(text)
	parent.Append(l)
	return l
}

// sections nests SECTION layers by heading level under a page.
type sections struct {
	doc   *doctree.Document
	stack []sectionEntry
}

type sectionEntry struct {
	layer *doctree.Layer
	level int
}

// Page is level 0; all headings nest under it.
func newSections(doc *doctree.Document, page *doctree.Layer) *sections {
	return &sections{doc: doc, stack: []sectionEntry{{layer: page, level: 0}}}
}

// open pops to the nearest shallower heading and pushes a new section.
func (s *sections) open(title string, level int) *doctree.Layer {
	for len(s.stack) > 1 && s.stack[len(s.stack)-1].level >= level {
		s.stack = s.stack[:len(s.stack)-1]
	}
	l := doctree.NewLayer(s.doc.NextID(), title, doctree.TypeSection)
	s.top().Append(l)
	s.stack = append(s.stack, sectionEntry{layer: l, level: level})
	return l
}

func (s *sections) top() *doctree.Layer {
	return s.stack[len(s.stack)-1].layer
}
