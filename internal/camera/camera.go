// Package camera provides the 2-D viewport over a tile grid.
package camera

import (
	"fmt"
	"strings"
)

// Zoom factors applied by ZoomIn and ZoomOut.
const (
	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8
)

// Direction is a unit camera move.
type Direction int

// Directions. Rows grow upward in camera space: Up increases Row.
const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

// String returns the direction name.
func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection parses a direction name. The editor keys z, s, q and d
// are accepted too.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "z":
		return Up, nil
	case "down", "s":
		return Down, nil
	case "left", "q":
		return Left, nil
	case "right", "d":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Rect is a pixel rectangle in the scaled grid image.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Camera is a position in grid cells plus a zoom factor.
type Camera struct {
	// Position in cells
	Row int `json:"row"`
	Col int `json:"col"`

	// Zoom multiplies every pixel quantity
	Zoom float64 `json:"zoom"`

	// Geometry of the rendered image
	TilePixels int `json:"tile_pixels"`
	ScreenW    int `json:"screen_w"`
	ScreenH    int `json:"screen_h"`
	GridHeight int `json:"grid_height"`
}

// New creates a camera at the origin with zoom 1.
func New(tilePixels, screenW, screenH, gridHeight int) *Camera {
	return &Camera{
		Zoom:       1,
		TilePixels: tilePixels,
		ScreenW:    screenW,
		ScreenH:    screenH,
		GridHeight: gridHeight,
	}
}

// Step moves the camera by one cell. Position is not clamped.
func (c *Camera) Step(d Direction) {
	switch d {
	case Up:
		c.Row++
	case Down:
		c.Row--
	case Left:
		c.Col--
	case Right:
		c.Col++
	}
}

// ZoomIn multiplies the zoom by ZoomInFactor and returns the factor used.
func (c *Camera) ZoomIn() float64 {
	c.Zoom *= ZoomInFactor
	return ZoomInFactor
}

// ZoomOut multiplies the zoom by ZoomOutFactor and returns the factor used.
func (c *Camera) ZoomOut() float64 {
	c.Zoom *= ZoomOutFactor
	return ZoomOutFactor
}

// VisibleRect returns the source rectangle of the scaled grid image to
// blit. The vertical origin is measured from the bottom of the grid. The
// rectangle may extend past the image; use Clip for an in-bounds one.
func (c *Camera) VisibleRect() Rect {
	tile := float64(c.TilePixels) * c.Zoom
	return Rect{
		X: float64(c.Col) * tile,
		Y: float64(c.GridHeight-c.Row) * tile,
		W: float64(c.ScreenW) * c.Zoom,
		H: float64(c.ScreenH) * c.Zoom,
	}
}

// Clip intersects r with an image of size w x h. The result is empty when
// they do not overlap.
func Clip(r Rect, w, h float64) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, w), min(r.Y+r.H, h)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
