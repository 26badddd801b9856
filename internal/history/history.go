// Package history keeps grid snapshots for undo.
package history

import "github.com/Faultbox/tileforge/pkg/tilemap"

// Stack is an unbounded list of grid snapshots, oldest first.
//
// Callers push the state after every edit, so the top of the stack is the
// current state. Undo therefore drops the top and restores the one below.
type Stack struct {
	snapshots []*tilemap.Grid
}

// New creates an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push appends an independent copy of g.
func (s *Stack) Push(g *tilemap.Grid) {
	s.snapshots = append(s.snapshots, g.Clone())
}

// PopUndo discards the top snapshot, then removes and returns the new top.
// With fewer than two snapshots it does nothing and returns false.
func (s *Stack) PopUndo() (*tilemap.Grid, bool) {
	n := len(s.snapshots)
	if n < 2 {
		return nil, false
	}
	prev := s.snapshots[n-2]
	s.snapshots[n-1], s.snapshots[n-2] = nil, nil
	s.snapshots = s.snapshots[:n-2]
	return prev, true
}

// Peek returns the top snapshot without removing it.
func (s *Stack) Peek() (*tilemap.Grid, bool) {
	if len(s.snapshots) == 0 {
		return nil, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// Len returns the number of snapshots held.
func (s *Stack) Len() int { return len(s.snapshots) }

// Clear drops every snapshot.
func (s *Stack) Clear() {
	clear(s.snapshots)
	s.snapshots = s.snapshots[:0]
}
