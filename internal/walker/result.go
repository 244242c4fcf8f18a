package walker

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is the structured mirror of one visited node.
// Field order follows the panel's JSON output.
type Record struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Path     string    `json:"path"`
	Depth    int       `json:"level"`
	Visible  bool      `json:"visible"`
	Children []*Record `json:"children"`
	Text     string    `json:"text"`
}

// Stats counts what a walk did.
type Stats struct {
	Visited int `json:"visited"`
	Cycles  int `json:"cycles"`
	Hidden  int `json:"hidden"`
	Yields  int `json:"yields"`
}

func (s *Stats) add(o Stats) {
	s.Visited += o.Visited
	s.Cycles += o.Cycles
	s.Hidden += o.Hidden
	s.Yields += o.Yields
}

// Result holds the three synchronized outputs of a walk.
type Result struct {
	FullPathLines  []string  `json:"fullPathLines"`
	ShortNameLines []string  `json:"shortNameLines"`
	Tree           []*Record `json:"tree"`
	Stats          Stats     `json:"stats"`

	simple bool
}

func newResult(opts Options) *Result {
	return &Result{
		FullPathLines:  []string{},
		ShortNameLines: []string{},
		Tree:           []*Record{},
		simple:         opts.SimpleNamesOnly,
	}
}

// Append concatenates other's outputs after r's.
func (r *Result) Append(other *Result) {
	r.FullPathLines = append(r.FullPathLines, other.FullPathLines...)
	r.ShortNameLines = append(r.ShortNameLines, other.ShortNameLines...)
	r.Tree = append(r.Tree, other.Tree...)
	r.Stats.add(other.Stats)
}

// Text joins the full-path lines.
func (r *Result) Text() string {
	return strings.Join(r.FullPathLines, "\n")
}

// SimpleText joins the short-name lines.
func (r *Result) SimpleText() string {
	return strings.Join(r.ShortNameLines, "\n")
}

// Primary returns the listing selected by SimpleNamesOnly.
func (r *Result) Primary() string {
	if r.simple {
		return r.SimpleText()
	}
	return r.Text()
}

// JSON serializes the tree with two-space indentation.
func (r *Result) JSON() (string, error) {
	return MarshalTree(r.Tree)
}

// Count returns the number of structured records, recursively.
func (r *Result) Count() int {
	return countRecords(r.Tree)
}

func countRecords(recs []*Record) int {
	n := 0
	for _, rec := range recs {
		n += 1 + countRecords(rec.Children)
	}
	return n
}

// MarshalTree encodes records without HTML escaping so names and text
// come out as the user typed them.
func MarshalTree(recs []*Record) (string, error) {
	if recs == nil {
		recs = []*Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
