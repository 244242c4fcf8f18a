package selection

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/layertree/internal/doctree"
)

func sampleDoc(id string) *doctree.Document {
	doc := doctree.NewDocument(id, "File "+id)
	page := doc.AddPage("Page 1")
	page.Append(
		doctree.NewLayer("f1", "Frame 1", doctree.TypeFrame),
		doctree.NewLayer("f2", "Frame 2", doctree.TypeFrame),
	)
	return doc
}

func TestWorkspace_SelectPreservesOrder(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("d1"))

	_, err := w.Select("d1", []string{"f2", "f1"})
	require.NoError(t, err)
	nodes := w.Selection()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Frame 2", nodes[0].Name())
	assert.Equal(t, "Frame 1", nodes[1].Name())
	assert.Equal(t, []Ref{{"d1", "f2"}, {"d1", "f1"}}, w.Refs())
}

func TestWorkspace_SelectUnknown(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("d1"))

	_, err := w.Select("nope", []string{"f1"})
	assert.True(t, errors.Is(err, ErrDocumentNotFound))

	_, err = w.Select("d1", []string{"f1", "missing"})
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.Empty(t, w.Selection(), "failed select leaves selection unchanged")
}

func TestWorkspace_OnChange(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("d1"))

	var got [][]doctree.Node
	w.OnChange(func(nodes []doctree.Node) string {
		got = append(got, nodes)
		return fmt.Sprintf("change-%d", len(got))
	})
	w.OnChange(func([]doctree.Node) string { return "" })

	id, err := w.Select("d1", []string{"f1"})
	require.NoError(t, err)
	assert.Equal(t, "change-1", id)
	id, err = w.Select("d1", nil)
	require.NoError(t, err)
	assert.Equal(t, "change-2", id)
	assert.Equal(t, "change-3", w.Clear(), "an empty id does not hide an earlier listener's")

	require.Len(t, got, 3)
	assert.Len(t, got[0], 1)
	assert.Empty(t, got[1])
	assert.Empty(t, got[2])
}

func TestWorkspace_RemoveDeselects(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("d1"))
	w.Add(sampleDoc("d2"))
	_, err := w.Select("d1", []string{"f1"})
	require.NoError(t, err)

	calls := 0
	w.OnChange(func([]doctree.Node) string {
		calls++
		return ""
	})

	require.NoError(t, w.Remove("d2"))
	assert.Equal(t, 0, calls, "removing an unselected document is not a selection change")

	require.NoError(t, w.Remove("d1"))
	assert.Equal(t, 1, calls)
	assert.Empty(t, w.Selection())
	assert.Empty(t, w.List())

	assert.True(t, errors.Is(w.Remove("d1"), ErrDocumentNotFound))
}

func TestWorkspace_ListOrder(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("b"))
	w.Add(sampleDoc("a"))
	w.Add(sampleDoc("b")) // replace keeps position

	docs := w.List()
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
}

func TestWorkspace_ConcurrentSelectsGetTheirOwnIDs(t *testing.T) {
	w := NewWorkspace()
	w.Add(sampleDoc("d1"))

	var mu sync.Mutex
	seq := 0
	owner := make(map[string]string) // change id -> selected node id
	w.OnChange(func(nodes []doctree.Node) string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		id := fmt.Sprintf("c%d", seq)
		if len(nodes) == 1 {
			owner[id] = nodes[0].ID()
		}
		return id
	})

	var wg sync.WaitGroup
	for i := range 50 {
		node := "f1"
		if i%2 == 1 {
			node = "f2"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := w.Select("d1", []string{node})
			if err != nil {
				t.Errorf("select %s: %v", node, err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if owner[id] != node {
				t.Errorf("select %s got change %s belonging to %s", node, id, owner[id])
			}
		}()
	}
	wg.Wait()
}
