package terrain

// Placement is one tile of a stamp pattern, relative to the root column.
type Placement struct {
	Offset int
	Tile   int
}

// Pattern is a stamp: rows from top to bottom, the last row sits on the
// root cell.
type Pattern [][]Placement

// PlainTree is a five-wide canopy on a four-tall trunk rooted in dirt.
func PlainTree(p Palette) Pattern {
	l, t := p.Leaves, p.Trunk
	return Pattern{
		{{-1, l}, {0, l}, {1, l}},
		{{-2, l}, {-1, l}, {0, t}, {1, l}, {2, l}},
		{{-2, l}, {-1, l}, {0, t}, {1, l}, {2, l}},
		{{0, t}},
		{{0, t}},
		{{0, p.Dirt}},
	}
}

// stamp writes pat with its last row on (rootRow, rootCol). Cells outside
// the grid are skipped. A cell already holding leaves is only overwritten by
// a trunk tile. It returns the number of cells written.
func (r *run) stamp(rootRow, rootCol int, pat Pattern) int {
	written := 0
	for i, row := range pat {
		y := rootRow + i - len(pat) + 1
		if y < 0 || y >= r.height {
			continue
		}
		for _, pl := range row {
			x := rootCol + pl.Offset
			if x < 0 || x >= r.width {
				continue
			}
			idx := y*r.width + x
			if r.cells[idx] == r.pal.Leaves && pl.Tile != r.pal.Trunk {
				continue
			}
			r.cells[idx] = pl.Tile
			written++
		}
	}
	return written
}
