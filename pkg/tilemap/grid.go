// Package tilemap provides the layered tile grid edited and generated by tileforge.
package tilemap

import (
	"errors"
	"fmt"
)

// Grid errors.
var (
	ErrOutOfRange   = errors.New("grid index out of range")
	ErrInvalidSize  = errors.New("invalid grid size")
	ErrInvalidScale = errors.New("invalid scale factor")
	ErrInvalidAtlas = errors.New("invalid atlas: tile count must be positive")
	ErrLayerLimit   = errors.New("layer limit reached")
)

// Size limits. Every grid that can be built also fits a TMAP save.
const (
	MaxSide   = 8192
	MaxLayers = 256
)

func checkSize(height, width int) error {
	if height <= 0 || width <= 0 || height > MaxSide || width > MaxSide {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, height, width)
	}
	return nil
}

// Cell addresses one cell of a layer.
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// Grid is a stack of equally sized layers of tile IDs.
//
// Layers are stored row-major. Dimensions are fixed for the lifetime of the
// grid; only the layer count grows. Tile IDs are not validated against any
// atlas, that is the renderer's concern.
type Grid struct {
	height int
	width  int
	layers [][]int
	active int
	scale  float64
}

// New creates a single-layer grid filled according to fill.
func New(height, width int, fill FillPolicy) (*Grid, error) {
	if err := checkSize(height, width); err != nil {
		return nil, err
	}
	layer, err := fill.layer(height, width)
	if err != nil {
		return nil, err
	}
	return &Grid{
		height: height,
		width:  width,
		layers: [][]int{layer},
		scale:  1,
	}, nil
}

// FromLayers builds a grid from existing layer data. Each layer must hold
// height*width cells. The slices are copied.
func FromLayers(height, width int, layers [][]int, active int, scale float64) (*Grid, error) {
	if err := checkSize(height, width); err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidSize)
	}
	if len(layers) > MaxLayers {
		return nil, fmt.Errorf("%w: %d layers", ErrLayerLimit, len(layers))
	}
	if active < 0 || active >= len(layers) {
		return nil, fmt.Errorf("%w: active layer %d of %d", ErrOutOfRange, active, len(layers))
	}
	if scale <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	g := &Grid{
		height: height,
		width:  width,
		layers: make([][]int, len(layers)),
		active: active,
		scale:  scale,
	}
	for i, l := range layers {
		if len(l) != height*width {
			return nil, fmt.Errorf("%w: layer %d has %d cells, expected %d", ErrInvalidSize, i, len(l), height*width)
		}
		g.layers[i] = append([]int(nil), l...)
	}
	return g, nil
}

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// LayerCount returns the number of stacked layers.
func (g *Grid) LayerCount() int { return len(g.layers) }

// Active returns the index of the layer edits are directed to.
func (g *Grid) Active() int { return g.active }

// Scale returns the presentation pixel-per-cell multiplier.
func (g *Grid) Scale() float64 { return g.scale }

func (g *Grid) index(layer, row, col int) (int, error) {
	if layer < 0 || layer >= len(g.layers) {
		return 0, fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return 0, fmt.Errorf("%w: cell (%d,%d) outside %dx%d", ErrOutOfRange, row, col, g.height, g.width)
	}
	return row*g.width + col, nil
}

// Get returns the tile ID at (layer, row, col).
func (g *Grid) Get(layer, row, col int) (int, error) {
	i, err := g.index(layer, row, col)
	if err != nil {
		return 0, err
	}
	return g.layers[layer][i], nil
}

// Set writes a tile ID at (layer, row, col).
func (g *Grid) Set(layer, row, col, id int) error {
	i, err := g.index(layer, row, col)
	if err != nil {
		return err
	}
	g.layers[layer][i] = id
	return nil
}

// SetRegion writes id to every listed cell. All cells are checked before
// anything is written, so a bad cell leaves the grid untouched.
func (g *Grid) SetRegion(layer int, cells []Cell, id int) error {
	for _, c := range cells {
		if _, err := g.index(layer, c.Row, c.Col); err != nil {
			return err
		}
	}
	l := g.layers[layer]
	for _, c := range cells {
		l[c.Row*g.width+c.Col] = id
	}
	return nil
}

// AppendLayer adds one layer on top filled according to fill.
func (g *Grid) AppendLayer(fill FillPolicy) error {
	if len(g.layers) >= MaxLayers {
		return fmt.Errorf("%w: %d", ErrLayerLimit, MaxLayers)
	}
	layer, err := fill.layer(g.height, g.width)
	if err != nil {
		return err
	}
	g.layers = append(g.layers, layer)
	return nil
}

// SetActive selects the layer edits are directed to.
func (g *Grid) SetActive(layer int) error {
	if layer < 0 || layer >= len(g.layers) {
		return fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	g.active = layer
	return nil
}

// StepOverlay moves the active layer pointer by delta. Moving past the top
// appends layers filled with fill until the pointer is valid again.
func (g *Grid) StepOverlay(delta int, fill FillPolicy) error {
	next := g.active + delta
	if next < 0 {
		return fmt.Errorf("%w: layer %d", ErrOutOfRange, next)
	}
	if next >= MaxLayers {
		return fmt.Errorf("%w: layer %d of at most %d", ErrLayerLimit, next, MaxLayers)
	}
	for next >= len(g.layers) {
		if err := g.AppendLayer(fill); err != nil {
			return err
		}
	}
	g.active = next
	return nil
}

// Rescale multiplies the presentation scale by factor.
func (g *Grid) Rescale(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, factor)
	}
	g.scale *= factor
	return nil
}

// Layer returns a copy of one layer in row-major order.
func (g *Grid) Layer(layer int) ([]int, error) {
	if layer < 0 || layer >= len(g.layers) {
		return nil, fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	return append([]int(nil), g.layers[layer]...), nil
}

// Rows returns one layer as a slice of rows. The result is a copy.
func (g *Grid) Rows(layer int) ([][]int, error) {
	l, err := g.Layer(layer)
	if err != nil {
		return nil, err
	}
	rows := make([][]int, g.height)
	for r := range rows {
		rows[r] = l[r*g.width : (r+1)*g.width : (r+1)*g.width]
	}
	return rows, nil
}

// Fill overwrites a whole layer according to fill.
func (g *Grid) Fill(layer int, fill FillPolicy) error {
	if layer < 0 || layer >= len(g.layers) {
		return fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	l, err := fill.layer(g.height, g.width)
	if err != nil {
		return err
	}
	g.layers[layer] = l
	return nil
}

// SetLayer overwrites a whole layer with cells, which must hold
// height*width values in row-major order. cells is copied.
func (g *Grid) SetLayer(layer int, cells []int) error {
	if layer < 0 || layer >= len(g.layers) {
		return fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	if len(cells) != g.height*g.width {
		return fmt.Errorf("%w: %d cells, expected %d", ErrInvalidSize, len(cells), g.height*g.width)
	}
	g.layers[layer] = append([]int(nil), cells...)
	return nil
}

// Replace swaps the whole content of g with other's. Dimensions and layer
// count follow other; other is copied.
func (g *Grid) Replace(other *Grid) {
	c := other.Clone()
	*g = *c
}

// Adopt takes other's dimensions, layers and active index but keeps g's
// presentation scale, which follows the viewer rather than the content.
func (g *Grid) Adopt(other *Grid) {
	scale := g.scale
	g.Replace(other)
	g.scale = scale
}

// Clone returns an independent deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		height: g.height,
		width:  g.width,
		layers: make([][]int, len(g.layers)),
		active: g.active,
		scale:  g.scale,
	}
	for i, l := range g.layers {
		c.layers[i] = append([]int(nil), l...)
	}
	return c
}

// Equal reports whether both grids have the same dimensions, layer count
// and cell values. Active layer and scale are not compared.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.height != other.height || g.width != other.width || len(g.layers) != len(other.layers) {
		return false
	}
	for i := range g.layers {
		a, b := g.layers[i], other.layers[i]
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// CountTiles returns how many cells of a layer hold each tile ID.
func (g *Grid) CountTiles(layer int) (map[int]int, error) {
	if layer < 0 || layer >= len(g.layers) {
		return nil, fmt.Errorf("%w: layer %d of %d", ErrOutOfRange, layer, len(g.layers))
	}
	counts := make(map[int]int)
	for _, id := range g.layers[layer] {
		counts[id]++
	}
	return counts, nil
}

// CellsInRect returns every cell of the inclusive rectangle spanned by two
// corners, in row-major order. The corners may be given in any order.
func CellsInRect(r0, c0, r1, c1 int) []Cell {
	if r1 < r0 {
		r0, r1 = r1, r0
	}
	if c1 < c0 {
		c0, c1 = c1, c0
	}
	cells := make([]Cell, 0, (r1-r0+1)*(c1-c0+1))
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			cells = append(cells, Cell{Row: r, Col: c})
		}
	}
	return cells
}
