package terrain

import (
	"testing"

	"github.com/Faultbox/tileforge/pkg/tilemap"
)

const atlasTiles = 720

func newEmptyGrid(t *testing.T, h, w int) *tilemap.Grid {
	t.Helper()
	g, err := tilemap.New(h, w, tilemap.Uniform(DefaultPalette().Empty))
	if err != nil {
		t.Fatalf("New(%d,%d) failed: %v", h, w, err)
	}
	return g
}

func generate(t *testing.T, s Settings, h, w int, seed int64) (*tilemap.Grid, Stats) {
	t.Helper()
	g := newEmptyGrid(t, h, w)
	stats, err := NewGenerator(s, DefaultPalette()).Generate(g, seed)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return g, stats
}

func TestGenerate_Deterministic(t *testing.T) {
	a, sa := generate(t, DefaultSettings(), 64, 32, 42)
	b, sb := generate(t, DefaultSettings(), 64, 32, 42)

	if !a.Equal(b) {
		t.Error("same seed produced different grids")
	}
	if sa.Trees != sb.Trees || sa.Carved != sb.Carved {
		t.Errorf("stats differ: %+v vs %+v", sa, sb)
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	a, _ := generate(t, DefaultSettings(), 64, 32, 42)
	b, _ := generate(t, DefaultSettings(), 64, 32, 43)

	if a.Equal(b) {
		t.Error("seeds 42 and 43 produced identical grids")
	}
}

func TestGenerate_IDsInsideAtlas(t *testing.T) {
	pal := DefaultPalette()
	if err := pal.Validate(tilemap.FixedAtlas(atlasTiles)); err != nil {
		t.Fatalf("default palette invalid: %v", err)
	}

	g, stats := generate(t, DefaultSettings(), 256, 64, 7)
	counts, err := g.CountTiles(0)
	if err != nil {
		t.Fatalf("CountTiles failed: %v", err)
	}
	total := 0
	for id, n := range counts {
		if id < 0 || id >= atlasTiles {
			t.Errorf("tile %d outside atlas", id)
		}
		total += n
	}
	if total != 256*64 {
		t.Errorf("counted %d cells, expected %d", total, 256*64)
	}
	for id, n := range counts {
		if stats.Counts[id] != n {
			t.Errorf("stats count for %d = %d, grid has %d", id, stats.Counts[id], n)
		}
	}
}

func TestGenerate_OnlyLayerZero(t *testing.T) {
	g := newEmptyGrid(t, 32, 16)
	if err := g.AppendLayer(tilemap.Uniform(7)); err != nil {
		t.Fatalf("AppendLayer failed: %v", err)
	}
	if _, err := NewGenerator(DefaultSettings(), DefaultPalette()).Generate(g, 1); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	counts, _ := g.CountTiles(1)
	if len(counts) != 1 || counts[7] != 32*16 {
		t.Errorf("overlay layer touched: %v", counts)
	}
}

func TestGenerate_OreDepthGates(t *testing.T) {
	s := DefaultSettings()
	s.Caves.Enabled = false
	// Exaggerated chances so every band shows up on a small grid.
	s.Iron.Chance, s.Coal.Chance, s.Diamond.Chance = 0.2, 0.3, 0.3

	const h, w = 128, 64
	g, _ := generate(t, s, h, w, 99)
	p := s.Params(h)
	pal := DefaultPalette()

	rows, _ := g.Rows(0)
	seen := map[int]bool{}
	for y, row := range rows {
		for _, id := range row {
			seen[id] = true
			switch id {
			case pal.Iron:
				if y <= p.IronMinRow {
					t.Errorf("iron at row %d, min row %d", y, p.IronMinRow)
				}
			case pal.Coal:
				if y <= p.CoalMinRow {
					t.Errorf("coal at row %d, min row %d", y, p.CoalMinRow)
				}
			case pal.Diamond:
				if y <= p.DiamondMinRow {
					t.Errorf("diamond at row %d, min row %d", y, p.DiamondMinRow)
				}
			}
		}
	}
	for _, id := range []int{pal.Stone, pal.Iron, pal.Coal, pal.Diamond, pal.Dirt} {
		if !seen[id] {
			t.Errorf("tile %d never generated", id)
		}
	}
}

func TestGenerate_ColumnProfile(t *testing.T) {
	s := DefaultSettings()
	s.Caves.Enabled = false
	s.TreeChance = 0

	const h, w = 256, 48
	g, _ := generate(t, s, h, w, 5)
	pal := DefaultPalette()
	p := s.Params(h)

	rows, _ := g.Rows(0)
	for x := 0; x < w; x++ {
		top := -1
		for y := 0; y < h; y++ {
			if rows[y][x] != pal.Empty && rows[y][x] != pal.Water {
				top = y
				break
			}
		}
		if top < 0 {
			t.Fatalf("column %d has no ground", x)
		}
		want := pal.Grass
		if top >= p.SeaLevel {
			want = pal.Sand
		}
		if rows[top][x] != want {
			t.Errorf("column %d surface tile %d at row %d, expected %d", x, rows[top][x], top, want)
		}

		dirt := 0
		for y := top + 1; y < h && rows[y][x] == pal.Dirt; y++ {
			dirt++
		}
		if dirt < s.DirtMin || dirt > s.DirtMax {
			t.Errorf("column %d dirt run %d outside [%d,%d]", x, dirt, s.DirtMin, s.DirtMax)
		}

		for y := top + 1 + dirt; y < h; y++ {
			switch rows[y][x] {
			case pal.Stone, pal.Iron, pal.Coal, pal.Diamond:
			default:
				t.Fatalf("column %d row %d holds %d below the soil", x, y, rows[y][x])
			}
		}
	}
}

func TestGenerate_Flood(t *testing.T) {
	s := DefaultSettings()
	s.Caves.Enabled = false
	s.TreeChance = 0
	// Surface far below the sea so the band above it floods.
	s.Surface = 0.9
	s.SeaLevel = 0.5
	s.StepRange = 0

	const h, w = 64, 8
	g, stats := generate(t, s, h, w, 3)
	pal := DefaultPalette()
	p := s.Params(h)

	rows, _ := g.Rows(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := rows[y][x]
			if y < p.WaterRow && id == pal.Water {
				t.Errorf("water above water row at (%d,%d)", y, x)
			}
			if y >= p.WaterRow && id == pal.Empty {
				t.Errorf("empty cell below water row at (%d,%d)", y, x)
			}
		}
	}
	if stats.Flooded == 0 {
		t.Error("expected flooded cells")
	}
	// Flat surface at 0.9*64 = 57.6, rounded up.
	for x := 0; x < w; x++ {
		if rows[58][x] != pal.Sand {
			t.Errorf("column %d: expected sand at row 58, got %d", x, rows[58][x])
		}
	}
}

func TestGenerate_CavesStayBelowMargin(t *testing.T) {
	s := DefaultSettings()
	s.TreeChance = 0
	s.Caves.Threshold = -1 // carve every eligible cell

	const h, w = 96, 24
	g, stats := generate(t, s, h, w, 11)
	pal := DefaultPalette()

	if stats.Carved == 0 {
		t.Fatal("expected carved cells")
	}
	rows, _ := g.Rows(0)
	for x := 0; x < w; x++ {
		top := 0
		for rows[top][x] == pal.Empty || rows[top][x] == pal.Water {
			top++
		}
		for y := top; y <= top+s.Caves.Margin && y < h; y++ {
			if rows[y][x] == pal.Empty {
				t.Errorf("column %d carved inside the margin at row %d", x, y)
			}
		}
	}
}

func TestGenerate_TinyGrids(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {1, 8}, {8, 1}, {3, 3}} {
		g := newEmptyGrid(t, size[0], size[1])
		if _, err := NewGenerator(DefaultSettings(), DefaultPalette()).Generate(g, 12); err != nil {
			t.Errorf("Generate on %dx%d failed: %v", size[0], size[1], err)
		}
	}
}

func TestGenerate_NilGrid(t *testing.T) {
	if _, err := NewGenerator(DefaultSettings(), DefaultPalette()).Generate(nil, 1); err == nil {
		t.Error("expected error for nil grid")
	}
}

func TestStamp(t *testing.T) {
	pal := DefaultPalette()
	r := &run{cells: make([]int, 8*8), height: 8, width: 8, pal: pal}
	for i := range r.cells {
		r.cells[i] = pal.Empty
	}

	// Root in the corner: most of the pattern is clipped.
	written := r.stamp(7, 0, PlainTree(pal))
	if got := r.at(7, 0); got != pal.Dirt {
		t.Errorf("root = %d, expected dirt", got)
	}
	if got := r.at(6, 0); got != pal.Trunk {
		t.Errorf("trunk = %d, expected trunk", got)
	}
	if got := r.at(2, 1); got != pal.Leaves {
		t.Errorf("canopy = %d, expected leaves", got)
	}
	// Row 2 keeps cols 0..1, rows 3..4 keep 0..2, rows 5..7 keep col 0.
	if written != 2+3+3+1+1+1 {
		t.Errorf("written = %d", written)
	}

	// A second tree two columns over must not replace leaves with leaves,
	// but its trunk replaces leaves.
	r.put(4, 2, pal.Leaves)
	r.stamp(7, 2, PlainTree(pal))
	if got := r.at(4, 2); got != pal.Trunk {
		t.Errorf("trunk over leaves = %d", got)
	}
}

func TestStamp_LeavesNotOverwritten(t *testing.T) {
	pal := DefaultPalette()
	r := &run{cells: make([]int, 4), height: 1, width: 4, pal: pal}
	r.cells = []int{pal.Leaves, pal.Leaves, pal.Empty, pal.Empty}

	pat := Pattern{{{0, pal.Grass}, {1, pal.Trunk}, {2, pal.Grass}}}
	if n := r.stamp(0, 0, pat); n != 2 {
		t.Errorf("written = %d, expected 2", n)
	}
	want := []int{pal.Leaves, pal.Trunk, pal.Grass, pal.Empty}
	for i := range want {
		if r.cells[i] != want[i] {
			t.Errorf("cell %d = %d, expected %d", i, r.cells[i], want[i])
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		ok     bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"zero smoothing", func(s *Settings) { s.Smoothing = 0 }, false},
		{"negative step", func(s *Settings) { s.StepRange = -1 }, false},
		{"inverted dirt", func(s *Settings) { s.DirtMin, s.DirtMax = 3, 2 }, false},
		{"surface past bottom", func(s *Settings) { s.Surface = 1.5 }, false},
		{"ore sum over one", func(s *Settings) { s.Coal.Chance = 0.995 }, false},
		{"caves off ignore frequency", func(s *Settings) { s.Caves = CaveSettings{} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			if err := s.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok expected %v", err, tt.ok)
			}
		})
	}
}

func TestParams_DefaultRows(t *testing.T) {
	p := DefaultSettings().Params(256)
	if p.SurfaceRow != 185 || p.SeaLevel != 193 || p.WaterRow != 193 {
		t.Errorf("surface/sea rows = %v/%d/%d", p.SurfaceRow, p.SeaLevel, p.WaterRow)
	}
	if p.IronMinRow != 195 || p.CoalMinRow != 125 || p.DiamondMinRow != 240 {
		t.Errorf("ore rows = %d/%d/%d", p.IronMinRow, p.CoalMinRow, p.DiamondMinRow)
	}
}

func TestPaletteValidate(t *testing.T) {
	if err := DefaultPalette().Validate(tilemap.FixedAtlas(100)); err == nil {
		t.Error("expected palette error for small atlas")
	}
	if err := DefaultPalette().Validate(nil); err == nil {
		t.Error("expected error for nil atlas")
	}
}

func TestSource(t *testing.T) {
	a, b := newSource(42), newSource(42)
	for i := 0; i < 10; i++ {
		if a.draw(i, i) != b.draw(i, i) {
			t.Fatal("same seed diverged")
		}
	}
	for i := 0; i < 100; i++ {
		v := a.intRange(-3, 3)
		if v < -3 || v > 3 {
			t.Fatalf("intRange out of bounds: %d", v)
		}
	}
	if a.intRange(5, 5) != 5 {
		t.Error("degenerate range must return lo")
	}
	if s := NewSeed(); s < 0 || s >= 10_000_000 {
		t.Errorf("NewSeed() = %d", s)
	}
}
