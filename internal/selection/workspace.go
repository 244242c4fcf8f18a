// Package selection owns the loaded documents and the ordered set of
// currently selected layers, and notifies listeners when it changes.
package selection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgallion1/layertree/internal/doctree"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNodeNotFound     = errors.New("node not found")
)

// Source yields the current selection in selection order.
type Source interface {
	Selection() []doctree.Node
}

// Ref identifies a selected layer.
type Ref struct {
	DocumentID string `json:"document_id"`
	NodeID     string `json:"node_id"`
}

// Listener receives the new selection after every change. It may return an
// id for the work it started, which Select and Clear hand back to their caller.
type Listener func(nodes []doctree.Node) string

// Workspace is a thread-safe registry of documents plus the selection.
type Workspace struct {
	// change serializes selection changes with their notification, so
	// listeners see changes in the order they were made.
	change sync.Mutex

	mu        sync.RWMutex
	docs      map[string]*doctree.Document
	order     []string
	selected  []Ref
	listeners []Listener
}

func NewWorkspace() *Workspace {
	return &Workspace{
		docs: make(map[string]*doctree.Document),
	}
}

// OnChange registers a listener. Listeners run synchronously on the
// goroutine that changed the selection; they must not block or change the
// selection themselves.
func (w *Workspace) OnChange(fn Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Add stores a document, replacing any previous one with the same id.
func (w *Workspace) Add(doc *doctree.Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.docs[doc.ID]; !ok {
		w.order = append(w.order, doc.ID)
	}
	w.docs[doc.ID] = doc
}

// Get returns a document by id, or nil.
func (w *Workspace) Get(id string) *doctree.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.docs[id]
}

// List returns documents in the order they were added.
func (w *Workspace) List() []*doctree.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*doctree.Document, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.docs[id])
	}
	return out
}

// Remove deletes a document. Selected layers from it are deselected,
// which counts as a selection change.
func (w *Workspace) Remove(id string) error {
	w.change.Lock()
	defer w.change.Unlock()

	w.mu.Lock()
	if _, ok := w.docs[id]; !ok {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	delete(w.docs, id)
	for i, d := range w.order {
		if d == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	kept := w.selected[:0]
	changed := false
	for _, r := range w.selected {
		if r.DocumentID == id {
			changed = true
			continue
		}
		kept = append(kept, r)
	}
	w.selected = kept
	w.mu.Unlock()

	if changed {
		w.notify()
	}
	return nil
}

// Select replaces the selection with the given layers of one document.
// An empty list clears the selection. It returns the id reported by the
// last listener that returned one.
func (w *Workspace) Select(docID string, nodeIDs []string) (string, error) {
	w.change.Lock()
	defer w.change.Unlock()

	w.mu.Lock()
	refs := make([]Ref, 0, len(nodeIDs))
	if len(nodeIDs) > 0 {
		doc, ok := w.docs[docID]
		if !ok {
			w.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
		}
		for _, id := range nodeIDs {
			if doc.Find(id) == nil {
				w.mu.Unlock()
				return "", fmt.Errorf("%w: %s in %s", ErrNodeNotFound, id, docID)
			}
			refs = append(refs, Ref{DocumentID: docID, NodeID: id})
		}
	}
	w.selected = refs
	w.mu.Unlock()

	return w.notify(), nil
}

// Clear empties the selection and returns the listener id like Select.
func (w *Workspace) Clear() string {
	w.change.Lock()
	defer w.change.Unlock()

	w.mu.Lock()
	w.selected = nil
	w.mu.Unlock()
	return w.notify()
}

// Refs returns the selected references.
func (w *Workspace) Refs() []Ref {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Ref, len(w.selected))
	copy(out, w.selected)
	return out
}

// Selection resolves the selected references to nodes. References whose
// layer has disappeared are skipped.
func (w *Workspace) Selection() []doctree.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolve()
}

func (w *Workspace) resolve() []doctree.Node {
	nodes := make([]doctree.Node, 0, len(w.selected))
	for _, r := range w.selected {
		doc := w.docs[r.DocumentID]
		if doc == nil {
			continue
		}
		if l := doc.Find(r.NodeID); l != nil {
			nodes = append(nodes, l)
		}
	}
	return nodes
}

// notify must be called with w.change held.
func (w *Workspace) notify() string {
	w.mu.RLock()
	nodes := w.resolve()
	listeners := make([]Listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.RUnlock()

	var id string
	for _, fn := range listeners {
		if got := fn(nodes); got != "" {
			id = got
		}
	}
	return id
}
