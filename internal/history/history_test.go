package history

import (
	"testing"

	"github.com/Faultbox/tileforge/pkg/tilemap"
)

func grid(t *testing.T, id int) *tilemap.Grid {
	t.Helper()
	g, err := tilemap.New(2, 2, tilemap.Uniform(id))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestPopUndo_DoublePop(t *testing.T) {
	s := New()
	a, b, c := grid(t, 1), grid(t, 2), grid(t, 3)
	s.Push(a)
	s.Push(b)
	s.Push(c)

	got, ok := s.PopUndo()
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	if !got.Equal(b) {
		t.Error("expected second snapshot")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", s.Len())
	}

	// One snapshot left: undo is a no-op.
	if _, ok := s.PopUndo(); ok {
		t.Error("expected no-op with one snapshot")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after no-op, expected 1", s.Len())
	}
}

func TestPopUndo_Empty(t *testing.T) {
	s := New()
	if g, ok := s.PopUndo(); ok || g != nil {
		t.Errorf("PopUndo on empty stack = %v, %v", g, ok)
	}
	if _, ok := s.Peek(); ok {
		t.Error("Peek on empty stack succeeded")
	}
}

func TestPush_Snapshots(t *testing.T) {
	s := New()
	g := grid(t, 1)
	s.Push(g)

	if err := g.Set(0, 0, 0, 9); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	top, _ := s.Peek()
	if v, _ := top.Get(0, 0, 0); v != 1 {
		t.Errorf("snapshot changed with live grid: %d", v)
	}
}

func TestEditUndoRestores(t *testing.T) {
	s := New()
	g := grid(t, 0)
	s.Push(g)
	before := g.Clone()

	g.Set(0, 1, 1, 5)
	s.Push(g)

	prev, ok := s.PopUndo()
	if !ok {
		t.Fatal("undo failed")
	}
	g.Replace(prev)
	if !g.Equal(before) {
		t.Error("undo did not restore the pre-edit state")
	}
	// Re-render after undo pushes the restored state again.
	s.Push(g)
	if s.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Push(grid(t, 1))
	s.Push(grid(t, 2))
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear", s.Len())
	}
}
