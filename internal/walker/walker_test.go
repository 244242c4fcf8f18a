package walker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/layertree/internal/doctree"
)

func newPage() *doctree.Layer {
	return doctree.NewLayer("0:1", "Page 1", doctree.TypePage)
}

func allOff() Options {
	return Options{}
}

func walkAll(t *testing.T, opts Options, roots ...doctree.Node) *Result {
	t.Helper()
	res, err := New(opts, WithYielder(NoYield)).Walk(context.Background(), roots)
	require.NoError(t, err)
	return res
}

func TestWalk_FrameWithLabel(t *testing.T) {
	frame := doctree.NewLayer("1:1", "Frame 1", doctree.TypeFrame)
	label := doctree.NewLayer("1:2", "Label", doctree.TypeText).SetText("Hi")
	newPage().Append(frame.Append(label))

	res := walkAll(t, DefaultOptions(), frame)

	assert.Equal(t, []string{"Frame 1", "  Frame 1 / Label: Hi"}, res.FullPathLines)
	assert.Equal(t, []string{"Frame 1", "  Label: Hi"}, res.ShortNameLines)
	require.Len(t, res.Tree, 1)
	assert.Equal(t, "Frame 1", res.Tree[0].Name)
	assert.Equal(t, "", res.Tree[0].Text)
	require.Len(t, res.Tree[0].Children, 1)

	got := res.Tree[0].Children[0]
	assert.Equal(t, "Label", got.Name)
	assert.Equal(t, "Hi", got.Text)
	assert.Equal(t, "Frame 1 / Label", got.Path)
	assert.Equal(t, 1, got.Depth)
	assert.Equal(t, doctree.TypeText, got.Type)
	assert.Empty(t, got.Children)
}

func TestWalk_IncludeTextOff(t *testing.T) {
	frame := doctree.NewLayer("1:1", "Frame 1", doctree.TypeFrame)
	frame.Append(doctree.NewLayer("1:2", "Label", doctree.TypeText).SetText("Hi"))
	newPage().Append(frame)

	with := walkAll(t, Options{IncludeText: true}, frame)
	without := walkAll(t, allOff(), frame)

	require.Len(t, without.FullPathLines, len(with.FullPathLines))
	for i := range with.FullPathLines {
		assert.Equal(t, strings.TrimSuffix(with.FullPathLines[i], ": Hi"), without.FullPathLines[i])
		assert.Equal(t, strings.TrimSuffix(with.ShortNameLines[i], ": Hi"), without.ShortNameLines[i])
	}
	// Structured text is kept regardless of the listing option.
	assert.Equal(t, "Hi", without.Tree[0].Children[0].Text)
}

func TestWalk_EmptyTextNoSuffix(t *testing.T) {
	label := doctree.NewLayer("1:2", "Label", doctree.TypeText)
	newPage().Append(label)

	res := walkAll(t, DefaultOptions(), label)
	assert.Equal(t, []string{"Label"}, res.FullPathLines)
}

func TestWalk_HideHiddenSkipsSubtree(t *testing.T) {
	root := doctree.NewLayer("1:1", "Root", doctree.TypeFrame)
	hidden := doctree.NewLayer("1:2", "Hidden", doctree.TypeGroup).SetVisible(false)
	hidden.Append(
		doctree.NewLayer("1:3", "Inner", doctree.TypeText).SetText("x"),
		doctree.NewLayer("1:4", "Deep", doctree.TypeFrame).Append(doctree.NewLayer("1:5", "Deeper", doctree.TypeRectangle)),
	)
	root.Append(hidden, doctree.NewLayer("1:6", "Shown", doctree.TypeRectangle))
	newPage().Append(root)

	res := walkAll(t, Options{HideHidden: true}, root)
	assert.Equal(t, []string{"Root", "  Shown"}, res.ShortNameLines)
	assert.Equal(t, 2, res.Count())
	assert.Equal(t, 1, res.Stats.Hidden)

	shown := walkAll(t, allOff(), root)
	assert.Equal(t, 6, shown.Count())
	assert.False(t, shown.Tree[0].Children[0].Visible)
}

func TestWalk_CycleDetected(t *testing.T) {
	a := doctree.NewLayer("1:1", "A", doctree.TypeFrame)
	b := doctree.NewLayer("1:2", "B", doctree.TypeFrame)
	c := doctree.NewLayer("1:3", "C", doctree.TypeText)
	newPage().Append(a)
	a.Append(b)
	b.Link(a)
	b.Append(c)

	res := walkAll(t, allOff(), a)

	want := []string{
		"A",
		"  A / B",
		"    ⚠️ Cycle detected: A (already processed)",
		"    A / B / C",
	}
	assert.Equal(t, want, res.FullPathLines)
	assert.Equal(t, "    ⚠️ Cycle detected: A (already processed)", res.ShortNameLines[2])
	assert.Equal(t, 3, res.Count(), "repeated occurrence gets no record")
	assert.Equal(t, 1, res.Stats.Cycles)
}

func TestWalk_SelfReference(t *testing.T) {
	a := doctree.NewLayer("1:1", "A", doctree.TypeFrame)
	a.Link(a)

	res := walkAll(t, allOff(), a)
	assert.Equal(t, []string{"A", "  ⚠️ Cycle detected: A (already processed)"}, res.ShortNameLines)
}

func TestWalk_VisitedSetPerRoot(t *testing.T) {
	shared := doctree.NewLayer("1:9", "Shared", doctree.TypeRectangle)
	r1 := doctree.NewLayer("1:1", "R1", doctree.TypeFrame).Link(shared)
	r2 := doctree.NewLayer("1:2", "R2", doctree.TypeFrame).Link(shared)

	res := walkAll(t, allOff(), r1, r2)
	assert.Equal(t, 0, res.Stats.Cycles)
	assert.Equal(t, []string{"R1", "  Shared", "R2", "  Shared"}, res.ShortNameLines)
	assert.Len(t, res.Tree, 2)
}

func TestWalk_RepeatWithinRootFlagged(t *testing.T) {
	shared := doctree.NewLayer("1:9", "Shared", doctree.TypeRectangle)
	r1 := doctree.NewLayer("1:1", "R1", doctree.TypeFrame).Link(shared).Link(shared)

	res := walkAll(t, allOff(), r1)
	assert.Equal(t, []string{"R1", "  Shared", "  ⚠️ Cycle detected: Shared (already processed)"}, res.ShortNameLines)
}

func TestWalk_NoChildrenConcept(t *testing.T) {
	leaf := doctree.NewLayer("1:1", "Leaf", doctree.TypeVector)
	res := walkAll(t, allOff(), leaf)
	require.Len(t, res.Tree, 1)
	assert.NotNil(t, res.Tree[0].Children)
	assert.Empty(t, res.Tree[0].Children)
}

func wideFrame(n int) *doctree.Layer {
	frame := doctree.NewLayer("1:0", "Wide", doctree.TypeFrame)
	for i := range n {
		child := doctree.NewLayer(fmt.Sprintf("2:%d", i), fmt.Sprintf("Item %d", i), doctree.TypeFrame)
		if i%10 == 0 {
			child.Append(doctree.NewLayer(fmt.Sprintf("3:%d", i), "Sub", doctree.TypeText).SetText("t"))
		}
		frame.Append(child)
	}
	newPage().Append(frame)
	return frame
}

func TestWalk_BatchingMatchesSinglePass(t *testing.T) {
	frame := wideFrame(137)

	yields := 0
	counting := YieldFunc(func(context.Context) error {
		yields++
		return nil
	})

	batched, err := New(DefaultOptions(), WithYielder(counting)).Walk(context.Background(), []doctree.Node{frame})
	require.NoError(t, err)
	single, err := New(DefaultOptions(), WithYielder(NoYield), WithBatchSize(10_000)).Walk(context.Background(), []doctree.Node{frame})
	require.NoError(t, err)

	assert.Equal(t, single.FullPathLines, batched.FullPathLines)
	assert.Equal(t, single.ShortNameLines, batched.ShortNameLines)
	bj, _ := batched.JSON()
	sj, _ := single.JSON()
	assert.Equal(t, sj, bj)

	// 137 children: batches of 50, 50, 37.
	assert.Equal(t, 2, yields)
	assert.Equal(t, 2, batched.Stats.Yields)
	assert.Equal(t, 0, single.Stats.Yields)
	assert.Equal(t, 1+137+14, batched.Count())
}

func TestWalk_YieldsBetweenRoots(t *testing.T) {
	roots := []doctree.Node{
		doctree.NewLayer("1:1", "A", doctree.TypeFrame),
		doctree.NewLayer("1:2", "B", doctree.TypeFrame),
		doctree.NewLayer("1:3", "C", doctree.TypeFrame),
	}
	res, err := New(allOff(), WithYielder(NoYield)).Walk(context.Background(), roots)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Yields)
}

func TestWalk_ContextCancelledAtYield(t *testing.T) {
	frame := wideFrame(120)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(allOff(), WithYielder(Gosched)).Walk(ctx, []doctree.Node{frame})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	// The first batch completed before the first yield point.
	assert.Equal(t, 1+50+5, len(res.ShortNameLines))
}

func TestWalk_Idempotent(t *testing.T) {
	frame := wideFrame(75)
	w := New(DefaultOptions(), WithYielder(NoYield))

	first, err := w.Walk(context.Background(), []doctree.Node{frame})
	require.NoError(t, err)
	second, err := w.Walk(context.Background(), []doctree.Node{frame})
	require.NoError(t, err)

	assert.Equal(t, first.Text(), second.Text())
	assert.Equal(t, first.SimpleText(), second.SimpleText())
	fj, _ := first.JSON()
	sj, _ := second.JSON()
	assert.Equal(t, fj, sj)
}

func TestWalk_IndentMatchesDepth(t *testing.T) {
	a := doctree.NewLayer("1:1", "A", doctree.TypeFrame)
	b := doctree.NewLayer("1:2", "B", doctree.TypeFrame)
	c := doctree.NewLayer("1:3", "C", doctree.TypeFrame)
	newPage().Append(a.Append(b.Append(c)))

	res := walkAll(t, allOff(), a)
	for d, line := range res.FullPathLines {
		prefix := strings.Repeat(" ", 2*d)
		require.True(t, strings.HasPrefix(line, prefix))
		rest := strings.TrimPrefix(line, prefix)
		assert.False(t, strings.HasPrefix(rest, " "))
		assert.Len(t, strings.Split(rest, doctree.PathSeparator), d+1)
	}
}

func TestWalk_EmptyRoots(t *testing.T) {
	res := walkAll(t, DefaultOptions())
	js, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", js)
	assert.Equal(t, "", res.Text())
}

func TestResult_JSONShape(t *testing.T) {
	label := doctree.NewLayer("1:2", "<Label>", doctree.TypeText).SetText("a & b")
	newPage().Append(label)

	res := walkAll(t, DefaultOptions(), label)
	js, err := res.JSON()
	require.NoError(t, err)

	want := `[
  {
    "id": "1:2",
    "name": "<Label>",
    "type": "TEXT",
    "path": "<Label>",
    "level": 0,
    "visible": true,
    "children": [],
    "text": "a & b"
  }
]`
	assert.Equal(t, want, js)
}

func TestResult_Primary(t *testing.T) {
	a := doctree.NewLayer("1:1", "A", doctree.TypeFrame)
	b := doctree.NewLayer("1:2", "B", doctree.TypeFrame)
	newPage().Append(a.Append(b))

	simple := walkAll(t, Options{SimpleNamesOnly: true}, a)
	assert.Equal(t, "A\n  B", simple.Primary())

	full := walkAll(t, allOff(), a)
	assert.Equal(t, "A\n  A / B", full.Primary())
}

func TestOptions_Apply(t *testing.T) {
	off := false
	on := true
	base := DefaultOptions()

	got := base.Apply(Patch{IncludeText: &off})
	assert.Equal(t, Options{SimpleNamesOnly: true, IncludeText: false, HideHidden: true}, got)

	got = Options{}.Apply(Patch{HideHidden: &on})
	assert.Equal(t, Options{HideHidden: true}, got)

	assert.True(t, Patch{}.Empty())
	assert.Equal(t, base, base.Apply(Patch{}))
}
