package parser

import (
	"fmt"
	"testing"

	"github.com/dgallion1/layertree/internal/doctree"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.json", "*parser.ExportJSONParser"},
		{"a.YAML", "*parser.ExportYAMLParser"},
		{"a.yml", "*parser.ExportYAMLParser"},
		{"a.md", "*parser.MarkdownParser"},
		{"a.markdown", "*parser.MarkdownParser"},
		{"a.html", "*parser.HTMLParser"},
		{"a.htm", "*parser.HTMLParser"},
		{"a.txt", "*parser.TextParser"},
		{"a.csv", "*parser.CSVParser"},
		{"a.pdf", "*parser.PDFParser"},
		{"a.docx", "*parser.DOCXParser"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename, Config{})
		if err != nil {
			t.Fatalf("ForFile(%q): %v", tt.filename, err)
		}
		if got := fmt.Sprintf("%T", p); got != tt.want {
			t.Errorf("ForFile(%q) = %s, want %s", tt.filename, got, tt.want)
		}
		if !IsSupportedExtension(tt.filename) {
			t.Errorf("IsSupportedExtension(%q) = false", tt.filename)
		}
	}
}

func TestForFile_Unsupported(t *testing.T) {
	if _, err := ForFile("photo.png", Config{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("photo.png") {
		t.Error("expected png to be unsupported")
	}
}

func TestForFile_PDFFallback(t *testing.T) {
	p, err := ForFile("scan.pdf", Config{PDFFallback: true})
	if err != nil {
		t.Fatal(err)
	}
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected fallback to be carried into the PDF parser")
	}
}

func TestBuildPDFPages(t *testing.T) {
	doc := doctree.NewDocument("", "scan")
	buildPDFPages(doc, "first line\n\n  second line  \f\f third page\n")

	pages := doc.Pages()
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages with text, got %d", len(pages))
	}
	if pages[0].Name() != "Page 1" || pages[1].Name() != "Page 3" {
		t.Errorf("unexpected page names %q, %q", pages[0].Name(), pages[1].Name())
	}
	if got := len(pages[0].Kids()); got != 2 {
		t.Errorf("expected 2 lines on page 1, got %d", got)
	}
	if pages[0].Kids()[1].Text() != "second line" {
		t.Errorf("expected trimmed line, got %q", pages[0].Kids()[1].Text())
	}
}
