// Package editor implements the tile editing session: one grid plus its
// undo history, camera, tile picker and save store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/camera"
	"github.com/Faultbox/tileforge/internal/config"
	"github.com/Faultbox/tileforge/internal/history"
	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/internal/storage"
	"github.com/Faultbox/tileforge/internal/terrain"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// ErrNoStore is returned by Save and Load on a session without a store.
var ErrNoStore = errors.New("session has no save store")

// Session owns a grid and everything that edits or views it.
//
// Every operation that changes the grid ends with render, which pushes a
// snapshot of the new state. The top of the history is therefore always
// the current grid, and Undo steps back one edit. A Session is not safe for
// concurrent use.
type Session struct {
	grid    *tilemap.Grid
	picker  *tilemap.Grid
	history *history.Stack
	camera  *camera.Camera
	gen     *terrain.Generator
	store   storage.Store
	atlas   tilemap.Atlas

	height, width int
	empty         int
	columns       int
	fixedSeed     *int64
	lastSeed      int64
	gridLines     bool
	rng           *rand.Rand
}

// New creates a session from cfg. store may be nil, in which case Save and
// Load fail with ErrNoStore.
func New(cfg *config.Config, store storage.Store) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		history:   history.New(),
		gen:       terrain.NewGenerator(cfg.Terrain.Settings, cfg.Terrain.Palette),
		store:     store,
		atlas:     cfg.TileAtlas(),
		height:    cfg.Grid.Height,
		width:     cfg.Grid.Width,
		empty:     cfg.Terrain.Palette.Empty,
		columns:   cfg.Atlas.Columns,
		fixedSeed: cfg.Terrain.Seed,
		gridLines: true,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	s.camera = camera.New(cfg.Camera.TilePixels, cfg.Camera.ScreenW, cfg.Camera.ScreenH, cfg.Grid.Height)
	s.camera.Row, s.camera.Col = cfg.Camera.Row, cfg.Camera.Col

	kind, err := tilemap.ParseFillKind(cfg.Grid.Fill)
	if err != nil {
		return nil, err
	}
	var fill tilemap.FillPolicy
	switch kind {
	case tilemap.FillEnumerate:
		fill = tilemap.Enumerate()
	case tilemap.FillRandom:
		fill = tilemap.Random(s.atlas, s.rng)
	default:
		fill = tilemap.Uniform(cfg.Grid.Tile)
	}
	if s.grid, err = tilemap.New(s.height, s.width, fill); err != nil {
		return nil, fmt.Errorf("creating grid: %w", err)
	}

	rows := (s.atlas.TileCount() + s.columns - 1) / s.columns
	if s.picker, err = tilemap.New(rows, s.columns, tilemap.Enumerate()); err != nil {
		return nil, fmt.Errorf("creating picker: %w", err)
	}

	logger.Info("editor session created",
		zap.Int("height", s.height),
		zap.Int("width", s.width),
		zap.String("fill", kind.String()),
		zap.Int("tiles", s.atlas.TileCount()))

	s.render()
	return s, nil
}

// render records the current grid as the newest snapshot.
func (s *Session) render() {
	s.history.Push(s.grid)
}

// Grid returns a copy of the current grid.
func (s *Session) Grid() *tilemap.Grid { return s.grid.Clone() }

// Get returns one cell of the current grid.
func (s *Session) Get(layer, row, col int) (int, error) {
	return s.grid.Get(layer, row, col)
}

// Camera returns a copy of the camera state.
func (s *Session) Camera() camera.Camera { return *s.camera }

// HistoryLen returns the number of snapshots held for undo.
func (s *Session) HistoryLen() int { return s.history.Len() }

// LastSeed returns the seed of the most recent generation.
func (s *Session) LastSeed() int64 { return s.lastSeed }

// GridLines reports whether the renderer should draw cell borders.
func (s *Session) GridLines() bool { return s.gridLines }

// ToggleGridLines flips cell border drawing and re-renders.
func (s *Session) ToggleGridLines() bool {
	s.gridLines = !s.gridLines
	s.render()
	return s.gridLines
}

func (s *Session) replace(fill tilemap.FillPolicy) error {
	g, err := tilemap.New(s.height, s.width, fill)
	if err != nil {
		return err
	}
	s.grid.Adopt(g)
	return nil
}

// Reset replaces the grid with a single layer of the empty tile.
func (s *Session) Reset() error {
	if err := s.replace(tilemap.Uniform(s.empty)); err != nil {
		return err
	}
	s.render()
	return nil
}

// Randomize replaces the grid with a single layer of random tiles.
func (s *Session) Randomize() error {
	if err := s.replace(tilemap.Random(s.atlas, s.rng)); err != nil {
		return err
	}
	s.render()
	return nil
}

// Enumerate replaces the grid with a single layer holding every tile ID in
// order.
func (s *Session) Enumerate() error {
	if err := s.replace(tilemap.Enumerate()); err != nil {
		return err
	}
	s.render()
	return nil
}

// Modify writes id to every cell of the active layer. Nothing is written
// if any cell is out of range.
func (s *Session) Modify(cells []tilemap.Cell, id int) error {
	if err := s.grid.SetRegion(s.grid.Active(), cells, id); err != nil {
		return err
	}
	s.render()
	return nil
}

// Set writes one cell of any layer.
func (s *Session) Set(layer, row, col, id int) error {
	if err := s.grid.Set(layer, row, col, id); err != nil {
		return err
	}
	s.render()
	return nil
}

// PaintRect writes id over the inclusive rectangle spanned by two corners
// of the active layer, as a drag selection does.
func (s *Session) PaintRect(r0, c0, r1, c1, id int) error {
	return s.Modify(tilemap.CellsInRect(r0, c0, r1, c1), id)
}

// Fill overwrites the active layer according to fill.
func (s *Session) Fill(fill tilemap.FillPolicy) error {
	if fill.Kind == tilemap.FillRandom {
		if fill.Atlas == nil {
			fill.Atlas = s.atlas
		}
		if fill.Rand == nil {
			fill.Rand = s.rng
		}
	}
	if err := s.grid.Fill(s.grid.Active(), fill); err != nil {
		return err
	}
	s.render()
	return nil
}

// Generate resets the grid and runs the terrain generator on it. A nil
// seed uses the configured seed, or a fresh one on every call when none is
// configured.
func (s *Session) Generate(seed *int64) (terrain.Stats, error) {
	var value int64
	switch {
	case seed != nil:
		value = *seed
	case s.fixedSeed != nil:
		value = *s.fixedSeed
	default:
		value = terrain.NewSeed()
	}

	g, err := tilemap.New(s.height, s.width, tilemap.Uniform(s.empty))
	if err != nil {
		return terrain.Stats{}, err
	}
	stats, err := s.gen.Generate(g, value)
	if err != nil {
		return terrain.Stats{}, err
	}

	s.grid.Adopt(g)
	s.lastSeed = value
	s.render()

	logger.Info("terrain generated",
		zap.Int64("seed", value),
		zap.Int("trees", stats.Trees),
		zap.Int("carved", stats.Carved))
	return stats, nil
}

// StepOverlay moves the active layer by delta, appending empty layers
// when moving past the top.
func (s *Session) StepOverlay(delta int) error {
	before := s.grid.LayerCount()
	if err := s.grid.StepOverlay(delta, tilemap.Uniform(s.empty)); err != nil {
		return err
	}
	if n := s.grid.LayerCount(); n != before {
		logger.Debug("overlay appended", zap.Int("layers", n))
	}
	s.render()
	return nil
}

// Undo restores the state before the last edit. It reports false, and
// changes nothing, when there is nothing to undo. The presentation scale
// stays with the camera zoom.
func (s *Session) Undo() bool {
	prev, ok := s.history.PopUndo()
	if !ok {
		return false
	}
	s.grid.Adopt(prev)
	s.camera.GridHeight = prev.Height()
	s.render()
	return true
}

// Scale multiplies the presentation scale of the grid and the picker.
func (s *Session) Scale(factor float64) error {
	if err := s.grid.Rescale(factor); err != nil {
		return err
	}
	if err := s.picker.Rescale(factor); err != nil {
		return err
	}
	s.render()
	return nil
}

// Move steps the camera one cell.
func (s *Session) Move(d camera.Direction) {
	s.camera.Step(d)
}

// ZoomIn zooms the camera in and scales the grid by the same factor.
func (s *Session) ZoomIn() error {
	return s.Scale(s.camera.ZoomIn())
}

// ZoomOut zooms the camera out and scales the grid by the same factor.
func (s *Session) ZoomOut() error {
	return s.Scale(s.camera.ZoomOut())
}

// VisibleRect returns the source rectangle the renderer should blit.
func (s *Session) VisibleRect() camera.Rect {
	return s.camera.VisibleRect()
}

// Picker returns a copy of the tile picker grid.
func (s *Session) Picker() *tilemap.Grid { return s.picker.Clone() }

// PickerTile returns the tile ID shown at (row, col) of the picker.
func (s *Session) PickerTile(row, col int) (int, error) {
	id, err := s.picker.Get(0, row, col)
	if err != nil {
		return 0, err
	}
	if id >= s.atlas.TileCount() {
		return 0, fmt.Errorf("%w: picker cell (%d,%d) past the last tile", tilemap.ErrOutOfRange, row, col)
	}
	return id, nil
}

// Save stores the current grid under name.
func (s *Session) Save(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.Save(ctx, name, s.grid); err != nil {
		return err
	}
	logger.Info("grid saved", zap.String("name", name))
	return nil
}

// Load replaces the grid with the one saved under name. The loaded grid
// keeps its own dimensions and layer count; the scale follows the camera.
func (s *Session) Load(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	g, err := s.store.Load(ctx, name)
	if err != nil {
		return err
	}
	s.grid.Adopt(g)
	s.camera.GridHeight = g.Height()
	s.render()
	logger.Info("grid loaded",
		zap.String("name", name),
		zap.Int("height", g.Height()),
		zap.Int("width", g.Width()),
		zap.Int("layers", g.LayerCount()))
	return nil
}

// Saves lists the names in the store.
func (s *Session) Saves(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(ctx)
}
