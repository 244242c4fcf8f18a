// Package walker turns a selection of layer nodes into an indented full-path
// listing, an indented short-name listing and a nested record tree.
//
// Children of a node are visited in fixed-size batches and the walker yields
// between batches and between top-level roots, so a very large selection never
// holds the calling loop for longer than one batch of work.
package walker

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/dgallion1/layertree/internal/doctree"
)

// DefaultBatchSize is the number of siblings visited between yields.
const DefaultBatchSize = 50

// CycleMarker prefixes the line emitted for a node seen twice under one root.
const CycleMarker = "⚠️"

// Yielder hands control back to the scheduler between batches.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YieldFunc adapts a function to Yielder.
type YieldFunc func(ctx context.Context) error

func (f YieldFunc) Yield(ctx context.Context) error { return f(ctx) }

var (
	// Gosched lets other goroutines run before the next batch.
	Gosched Yielder = YieldFunc(func(ctx context.Context) error {
		runtime.Gosched()
		return ctx.Err()
	})
	// NoYield runs the traversal straight through.
	NoYield Yielder = YieldFunc(func(context.Context) error { return nil })
)

// Walker walks node forests with a fixed set of options.
type Walker struct {
	opts      Options
	batchSize int
	yield     Yielder
}

type Option func(*Walker)

// WithBatchSize sets how many siblings are visited between yields.
func WithBatchSize(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithYielder replaces the default Gosched yielder.
func WithYielder(y Yielder) Option {
	return func(w *Walker) {
		if y != nil {
			w.yield = y
		}
	}
}

// New creates a walker. Options are copied; later changes by the caller
// do not affect walks started from this walker.
func New(opts Options, options ...Option) *Walker {
	w := &Walker{
		opts:      opts,
		batchSize: DefaultBatchSize,
		yield:     Gosched,
	}
	for _, o := range options {
		o(w)
	}
	return w
}

// Options returns the options this walker applies.
func (w *Walker) Options() Options {
	return w.opts
}

// Walk visits each root in order, each with its own visited set, and
// concatenates their outputs. The only error it returns is a context error
// observed at a yield point; the partial result is returned with it.
func (w *Walker) Walk(ctx context.Context, roots []doctree.Node) (*Result, error) {
	res := newResult(w.opts)
	for i, root := range roots {
		if i > 0 {
			if err := w.pause(ctx, &res.Stats); err != nil {
				return res, err
			}
		}
		part, err := w.WalkRoot(ctx, root)
		res.Append(part)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// WalkRoot walks a single top-level node with a fresh visited set.
func (w *Walker) WalkRoot(ctx context.Context, root doctree.Node) (*Result, error) {
	t := &traversal{
		Walker:  w,
		visited: make(map[string]struct{}),
		res:     newResult(w.opts),
	}
	err := t.visitAll(ctx, []doctree.Node{root}, 0, &t.res.Tree)
	return t.res, err
}

func (w *Walker) pause(ctx context.Context, stats *Stats) error {
	stats.Yields++
	return w.yield.Yield(ctx)
}

// traversal is the state of one root's walk.
type traversal struct {
	*Walker
	visited map[string]struct{}
	res     *Result
}

func (t *traversal) visitAll(ctx context.Context, nodes []doctree.Node, depth int, dst *[]*Record) error {
	for start := 0; start < len(nodes); start += t.batchSize {
		if start > 0 {
			if err := t.pause(ctx, &t.res.Stats); err != nil {
				return err
			}
		}
		end := min(start+t.batchSize, len(nodes))
		for _, n := range nodes[start:end] {
			if err := t.visit(ctx, n, depth, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *traversal) visit(ctx context.Context, n doctree.Node, depth int, dst *[]*Record) error {
	if n == nil {
		return nil
	}
	if t.opts.HideHidden && !n.Visible() {
		t.res.Stats.Hidden++
		return nil
	}

	indent := strings.Repeat("  ", depth)
	id := n.ID()
	if _, seen := t.visited[id]; seen {
		line := fmt.Sprintf("%s%s Cycle detected: %s (already processed)", indent, CycleMarker, n.Name())
		t.res.FullPathLines = append(t.res.FullPathLines, line)
		t.res.ShortNameLines = append(t.res.ShortNameLines, line)
		t.res.Stats.Cycles++
		return nil
	}
	t.visited[id] = struct{}{}
	t.res.Stats.Visited++

	text := n.Text()
	suffix := ""
	if t.opts.IncludeText && text != "" {
		suffix = ": " + text
	}
	path := doctree.Path(n)
	t.res.FullPathLines = append(t.res.FullPathLines, indent+path+suffix)
	t.res.ShortNameLines = append(t.res.ShortNameLines, indent+n.Name()+suffix)

	rec := &Record{
		ID:       id,
		Name:     n.Name(),
		Type:     n.Type(),
		Path:     path,
		Depth:    depth,
		Visible:  n.Visible(),
		Children: []*Record{},
		Text:     text,
	}
	*dst = append(*dst, rec)

	children, ok := n.Children()
	if !ok || len(children) == 0 {
		return nil
	}
	return t.visitAll(ctx, children, depth+1, &rec.Children)
}
