package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// Stats summarizes one generator run.
type Stats struct {
	Seed    int64
	Trees   int
	Flooded int
	Carved  int
	Counts  map[int]int
}

// Generator writes terrain into layer 0 of a grid. It holds no state
// between runs; each run owns its random stream.
type Generator struct {
	settings Settings
	palette  Palette
	log      *zap.Logger
}

// NewGenerator creates a generator.
func NewGenerator(settings Settings, palette Palette) *Generator {
	return &Generator{
		settings: settings,
		palette:  palette,
		log:      logger.Named("terrain"),
	}
}

// Settings returns the generator settings.
func (g *Generator) Settings() Settings { return g.settings }

// Palette returns the tile IDs the generator writes.
func (g *Generator) Palette() Palette { return g.palette }

// run is the state of one generation over one layer.
type run struct {
	cells   []int
	height  int
	width   int
	p       Params
	pal     Palette
	src     *source
	seed    int64
	surface []int
	stats   Stats
}

// Generate resets layer 0 of grid to the empty tile and fills it with
// terrain derived from seed. Other layers are not touched. The same seed on
// the same grid size always yields the same layer.
func (g *Generator) Generate(grid *tilemap.Grid, seed int64) (Stats, error) {
	if grid == nil {
		return Stats{}, errors.New("generating into nil grid")
	}

	h, w := grid.Height(), grid.Width()
	r := &run{
		cells:   make([]int, h*w),
		height:  h,
		width:   w,
		p:       g.settings.Params(h),
		pal:     g.palette,
		src:     newSource(seed),
		seed:    seed,
		surface: make([]int, w),
		stats:   Stats{Seed: seed},
	}
	for i := range r.cells {
		r.cells[i] = g.palette.Empty
	}

	// Order matters: each pass keys off tiles written by the previous one.
	r.surfacePass()
	r.soilPass()
	r.strataPass()
	r.floodPass()
	if r.p.Caves.Enabled {
		r.cavePass()
	}

	if err := grid.SetLayer(0, r.cells); err != nil {
		return Stats{}, fmt.Errorf("writing terrain layer: %w", err)
	}

	r.stats.Counts = make(map[int]int)
	for _, id := range r.cells {
		r.stats.Counts[id]++
	}

	g.log.Debug("terrain generated",
		zap.Int64("seed", seed),
		zap.Int("height", h),
		zap.Int("width", w),
		zap.Int("trees", r.stats.Trees),
		zap.Int("flooded", r.stats.Flooded),
		zap.Int("carved", r.stats.Carved),
	)

	return r.stats, nil
}

func (r *run) at(row, col int) int { return r.cells[row*r.width+col] }
func (r *run) put(row, col, id int) { r.cells[row*r.width+col] = id }
func (r *run) clampRow(row int) int { return max(0, min(row, r.height-1)) }
func (r *run) clampSurface(f float64) float64 {
	return math.Max(0, math.Min(f, float64(r.height-1)))
}

// surfacePass walks columns left to right along a slowly meandering
// surface line, planting trees on some columns.
func (r *run) surfacePass() {
	surface := r.clampSurface(r.p.SurfaceRow)
	tree := PlainTree(r.pal)

	for x := 0; x < r.width; x++ {
		row := r.clampRow(int(math.Ceil(surface)))
		d := r.src.draw(row, x)

		if row < r.p.SeaLevel {
			r.put(row, x, r.pal.Grass)
		} else {
			r.put(row, x, r.pal.Sand)
		}
		r.surface[x] = row

		if d < r.p.TreeChance {
			r.stamp(row, x, tree)
			r.stats.Trees++
		}

		step := r.src.intRange(-r.p.StepRange, r.p.StepRange)
		surface = r.clampSurface(surface + float64(step)/r.p.Smoothing)
	}
}

func (r *run) isSurface(id int) bool {
	return id == r.pal.Grass || id == r.pal.Sand || id == r.pal.Dirt
}

// soilPass lays a short run of dirt under the first surface tile of each
// column.
func (r *run) soilPass() {
	for x := 0; x < r.width; x++ {
		for y := 1; y < r.height; y++ {
			if !r.isSurface(r.at(y-1, x)) {
				continue
			}
			r.src.draw(y, x)
			n := r.src.intRange(r.p.DirtMin, r.p.DirtMax)
			for k := 0; k < n && y+k < r.height; k++ {
				r.put(y+k, x, r.pal.Dirt)
			}
			break
		}
	}
}

// strataPass fills each column from just below its dirt run to the bottom
// with stone and ore.
func (r *run) strataPass() {
	for x := 0; x < r.width; x++ {
		for y := 1; y < r.height; y++ {
			if r.at(y-1, x) != r.pal.Dirt || r.at(y, x) == r.pal.Dirt {
				continue
			}
			// Each cell draws at its own row, not at the row the block starts on.
			for row := y; row < r.height; row++ {
				r.put(row, x, r.classify(r.src.draw(row, x), row))
			}
			break
		}
	}
}

// classify maps one draw to a tile with cumulative, depth-gated bands.
// Band edges are exclusive; a draw landing exactly on an edge is stone.
func (r *run) classify(v float64, row int) int {
	iron := r.p.IronChance
	coal := iron + r.p.CoalChance
	diamond := coal + r.p.DiamondChance

	switch {
	case v < iron && row > r.p.IronMinRow:
		return r.pal.Iron
	case iron < v && v < coal && row > r.p.CoalMinRow:
		return r.pal.Coal
	case coal < v && v < diamond && row > r.p.DiamondMinRow:
		return r.pal.Diamond
	default:
		return r.pal.Stone
	}
}

// floodPass turns empty cells at or below the water row into water.
func (r *run) floodPass() {
	for y := max(0, r.p.WaterRow); y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			if r.at(y, x) == r.pal.Empty {
				r.put(y, x, r.pal.Water)
				r.stats.Flooded++
			}
		}
	}
}

func (r *run) carvable(id int) bool {
	return id == r.pal.Stone || id == r.pal.Iron || id == r.pal.Coal || id == r.pal.Diamond
}

// cavePass hollows out stone where 2-D perlin noise is high enough, keeping
// a solid margin under the surface.
func (r *run) cavePass() {
	c := r.p.Caves
	noise := perlin.NewPerlin(c.Alpha, c.Beta, c.Octaves, r.seed)

	for x := 0; x < r.width; x++ {
		for y := r.surface[x] + c.Margin + 1; y < r.height; y++ {
			if !r.carvable(r.at(y, x)) {
				continue
			}
			if noise.Noise2D(float64(x)*c.Frequency, float64(y)*c.Frequency) > c.Threshold {
				r.put(y, x, r.pal.Cave)
				r.stats.Carved++
			}
		}
	}
}
