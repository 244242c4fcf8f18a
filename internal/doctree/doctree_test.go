package doctree

import "testing"

func TestPath_StopsAtPage(t *testing.T) {
	doc := NewDocument("d1", "File")
	page := doc.AddPage("Page 1")
	frame := NewLayer("1:10", "Frame 1", TypeFrame)
	group := NewLayer("1:11", "Group", TypeGroup)
	label := NewLayer("1:12", "Label", TypeText).SetText("Hi")
	page.Append(frame.Append(group.Append(label)))

	tests := []struct {
		node Node
		want string
	}{
		{page, "Page 1"},
		{frame, "Frame 1"},
		{group, "Frame 1 / Group"},
		{label, "Frame 1 / Group / Label"},
	}
	for _, tt := range tests {
		if got := Path(tt.node); got != tt.want {
			t.Errorf("Path(%s): expected %q, got %q", tt.node.Name(), tt.want, got)
		}
	}
}

func TestPath_NoPageBoundary(t *testing.T) {
	a := NewLayer("a", "A", TypeFrame)
	b := NewLayer("b", "B", TypeFrame)
	a.Append(b)
	if got := Path(b); got != "A / B" {
		t.Errorf("expected %q, got %q", "A / B", got)
	}
}

func TestPath_CyclicParentChain(t *testing.T) {
	a := NewLayer("a", "A", TypeFrame)
	b := NewLayer("b", "B", TypeFrame)
	a.Append(b)
	b.Append(a) // a.parent = b, b.parent = a

	if got := Path(b); got != "A / B" {
		t.Errorf("expected %q, got %q", "A / B", got)
	}
}

func TestLayer_ChildrenConcept(t *testing.T) {
	text := NewLayer("t", "T", TypeText)
	if _, ok := text.Children(); ok {
		t.Error("expected TEXT layer to have no children concept")
	}

	frame := NewLayer("f", "F", TypeFrame)
	kids, ok := frame.Children()
	if !ok {
		t.Fatal("expected FRAME layer to have a children concept")
	}
	if len(kids) != 0 {
		t.Errorf("expected empty children, got %d", len(kids))
	}

	rect := NewLayer("r", "R", TypeRectangle)
	rect.Append(NewLayer("x", "X", TypeVector))
	if kids, ok := rect.Children(); !ok || len(kids) != 1 {
		t.Errorf("expected Append to give a children concept, got ok=%v len=%d", ok, len(kids))
	}
}

func TestLayer_TextOnlyForTextNodes(t *testing.T) {
	frame := NewLayer("f", "F", TypeFrame).SetText("ignored")
	if frame.Text() != "" {
		t.Errorf("expected empty text for frame, got %q", frame.Text())
	}
	label := NewLayer("l", "L", TypeText).SetText("Hi")
	if label.Text() != "Hi" {
		t.Errorf("expected %q, got %q", "Hi", label.Text())
	}
}

func TestLayer_ParentNilInterface(t *testing.T) {
	l := NewLayer("x", "X", TypeFrame)
	if l.Parent() != nil {
		t.Error("expected nil parent interface for detached layer")
	}
}

func TestLayer_LinkKeepsParent(t *testing.T) {
	a := NewLayer("a", "A", TypeFrame)
	b := NewLayer("b", "B", TypeFrame)
	shared := NewLayer("s", "S", TypeText)
	a.Append(shared)
	b.Link(shared)

	if shared.Parent().ID() != "a" {
		t.Errorf("expected parent a, got %s", shared.Parent().ID())
	}
	if len(b.Kids()) != 1 || b.Kids()[0] != shared {
		t.Error("expected shared layer linked under b")
	}
}

func TestDocument_FindAndCountWithCycle(t *testing.T) {
	doc := NewDocument("d1", "File")
	page := doc.AddPage("Page 1")
	frame := NewLayer(doc.NextID(), "Frame", TypeFrame)
	child := NewLayer(doc.NextID(), "Child", TypeFrame)
	page.Append(frame.Append(child))
	child.Link(frame)

	// root, page, frame, child
	if got := doc.Count(); got != 4 {
		t.Errorf("expected 4 layers, got %d", got)
	}
	if doc.Find(child.ID()) != child {
		t.Error("expected to find child by id")
	}
	if doc.Find("missing") != nil {
		t.Error("expected nil for missing id")
	}
}

func TestDocument_TopLevel(t *testing.T) {
	doc := NewDocument("d1", "File")
	p1 := doc.AddPage("P1")
	p2 := doc.AddPage("P2")
	p1.Append(NewLayer(doc.NextID(), "A", TypeFrame))
	p2.Append(NewLayer(doc.NextID(), "B", TypeFrame), NewLayer(doc.NextID(), "C", TypeText))

	top := doc.TopLevel()
	if len(top) != 3 {
		t.Fatalf("expected 3 top-level layers, got %d", len(top))
	}
	for i, want := range []string{"A", "B", "C"} {
		if top[i].Name() != want {
			t.Errorf("top[%d]: expected %q, got %q", i, want, top[i].Name())
		}
	}
	if len(doc.Pages()) != 2 {
		t.Errorf("expected 2 pages, got %d", len(doc.Pages()))
	}
}
