package tilemap

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func mustGrid(t *testing.T, height, width int, fill FillPolicy) *Grid {
	t.Helper()
	g, err := New(height, width, fill)
	if err != nil {
		t.Fatalf("New(%d, %d) failed: %v", height, width, err)
	}
	return g
}

func TestNew_Uniform(t *testing.T) {
	g := mustGrid(t, 16, 16, Uniform(5))

	if g.Height() != 16 || g.Width() != 16 {
		t.Errorf("expected 16x16, got %dx%d", g.Height(), g.Width())
	}
	if g.LayerCount() != 1 {
		t.Errorf("expected 1 layer, got %d", g.LayerCount())
	}
	if g.Scale() != 1 {
		t.Errorf("expected scale 1, got %v", g.Scale())
	}

	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			got, err := g.Get(0, r, c)
			if err != nil {
				t.Fatalf("Get(0,%d,%d) failed: %v", r, c, err)
			}
			if got != 5 {
				t.Fatalf("Get(0,%d,%d) = %d, expected 5", r, c, got)
			}
		}
	}
}

func TestNew_InvalidSize(t *testing.T) {
	tests := []struct {
		height, width int
	}{
		{0, 4}, {4, 0}, {-1, 4}, {4, -3}, {MaxSide + 1, 4}, {4, MaxSide + 1},
	}
	for _, tc := range tests {
		if _, err := New(tc.height, tc.width, Uniform(0)); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("New(%d, %d): expected ErrInvalidSize, got %v", tc.height, tc.width, err)
		}
	}
}

func TestNew_Enumerate(t *testing.T) {
	g := mustGrid(t, 5, 7, Enumerate())

	for i := 0; i < 5; i++ {
		for j := 0; j < 7; j++ {
			got, _ := g.Get(0, i, j)
			if got != i*7+j {
				t.Errorf("cell (%d,%d) = %d, expected %d", i, j, got, i*7+j)
			}
		}
	}
}

func TestNew_Random(t *testing.T) {
	const atlasSize = 13
	rng := rand.New(rand.NewPCG(1, 2))
	g := mustGrid(t, 40, 40, Random(FixedAtlas(atlasSize), rng))

	seen := make(map[int]bool)
	layer, _ := g.Layer(0)
	for _, id := range layer {
		if id < 0 || id >= atlasSize {
			t.Fatalf("random fill produced %d outside [0,%d)", id, atlasSize)
		}
		seen[id] = true
	}
	if len(seen) < atlasSize/2 {
		t.Errorf("random fill looks degenerate: only %d distinct ids", len(seen))
	}
}

func TestNew_RandomInvalidAtlas(t *testing.T) {
	if _, err := New(2, 2, Random(FixedAtlas(0), nil)); !errors.Is(err, ErrInvalidAtlas) {
		t.Errorf("expected ErrInvalidAtlas, got %v", err)
	}
	if _, err := New(2, 2, Random(nil, nil)); !errors.Is(err, ErrInvalidAtlas) {
		t.Errorf("expected ErrInvalidAtlas for nil atlas, got %v", err)
	}
}

func TestGrid_SetGet(t *testing.T) {
	g := mustGrid(t, 3, 4, Uniform(0))
	if err := g.AppendLayer(Uniform(0)); err != nil {
		t.Fatalf("AppendLayer failed: %v", err)
	}

	for layer := 0; layer < 2; layer++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				v := layer*100 + r*10 + c
				if err := g.Set(layer, r, c, v); err != nil {
					t.Fatalf("Set(%d,%d,%d) failed: %v", layer, r, c, err)
				}
				got, err := g.Get(layer, r, c)
				if err != nil || got != v {
					t.Fatalf("Get(%d,%d,%d) = %d, %v; expected %d", layer, r, c, got, err, v)
				}
			}
		}
	}
}

func TestGrid_OutOfRange(t *testing.T) {
	g := mustGrid(t, 3, 4, Uniform(0))

	tests := []struct {
		name            string
		layer, row, col int
	}{
		{"negative layer", -1, 0, 0},
		{"layer past top", 1, 0, 0},
		{"negative row", 0, -1, 0},
		{"row past bottom", 0, 3, 0},
		{"negative col", 0, 0, -1},
		{"col past edge", 0, 0, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := g.Get(tc.layer, tc.row, tc.col); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Get: expected ErrOutOfRange, got %v", err)
			}
			if err := g.Set(tc.layer, tc.row, tc.col, 1); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Set: expected ErrOutOfRange, got %v", err)
			}
		})
	}
}

func TestGrid_SetRegion(t *testing.T) {
	g := mustGrid(t, 4, 4, Uniform(0))

	cells := []Cell{{0, 0}, {0, 1}, {1, 0}}
	if err := g.SetRegion(0, cells, 9); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			got, _ := g.Get(0, r, c)
			want := 0
			if (r == 0 && c == 0) || (r == 0 && c == 1) || (r == 1 && c == 0) {
				want = 9
			}
			if got != want {
				t.Errorf("cell (%d,%d) = %d, expected %d", r, c, got, want)
			}
		}
	}
}

func TestGrid_SetRegionRejectsWholeBatch(t *testing.T) {
	g := mustGrid(t, 4, 4, Uniform(0))

	err := g.SetRegion(0, []Cell{{0, 0}, {9, 9}}, 7)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if got, _ := g.Get(0, 0, 0); got != 0 {
		t.Errorf("cell (0,0) was written despite error: %d", got)
	}
}

func TestGrid_AppendLayer(t *testing.T) {
	g := mustGrid(t, 3, 3, Enumerate())
	before, _ := g.Layer(0)

	if err := g.AppendLayer(Uniform(42)); err != nil {
		t.Fatalf("AppendLayer failed: %v", err)
	}
	if g.LayerCount() != 2 {
		t.Fatalf("expected 2 layers, got %d", g.LayerCount())
	}

	after, _ := g.Layer(0)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("layer 0 changed at %d: %d -> %d", i, before[i], after[i])
		}
	}
	top, _ := g.Layer(1)
	for i, id := range top {
		if id != 42 {
			t.Fatalf("new layer cell %d = %d, expected 42", i, id)
		}
	}
}

func TestGrid_StepOverlay(t *testing.T) {
	g := mustGrid(t, 2, 2, Uniform(1))

	if err := g.StepOverlay(1, Uniform(602)); err != nil {
		t.Fatalf("StepOverlay(+1) failed: %v", err)
	}
	if g.Active() != 1 || g.LayerCount() != 2 {
		t.Errorf("expected active 1 of 2, got %d of %d", g.Active(), g.LayerCount())
	}

	if err := g.StepOverlay(-1, Uniform(602)); err != nil {
		t.Fatalf("StepOverlay(-1) failed: %v", err)
	}
	if g.Active() != 0 || g.LayerCount() != 2 {
		t.Errorf("expected active 0 of 2, got %d of %d", g.Active(), g.LayerCount())
	}

	if err := g.StepOverlay(-1, Uniform(602)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange below layer 0, got %v", err)
	}
	if g.Active() != 0 {
		t.Errorf("active changed on failed step: %d", g.Active())
	}
}

func TestGrid_Rescale(t *testing.T) {
	g := mustGrid(t, 2, 2, Uniform(0))

	g.Rescale(1.2)
	g.Rescale(0.5)
	if got := g.Scale(); got < 0.5999 || got > 0.6001 {
		t.Errorf("expected compounded scale 0.6, got %v", got)
	}
	if g.Height() != 2 || g.Width() != 2 {
		t.Error("rescale must not resize the cell array")
	}
	if err := g.Rescale(0); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("expected ErrInvalidScale, got %v", err)
	}
}

func TestGrid_CloneIsIndependent(t *testing.T) {
	g := mustGrid(t, 3, 3, Uniform(0))
	c := g.Clone()

	g.Set(0, 1, 1, 77)
	if got, _ := c.Get(0, 1, 1); got != 0 {
		t.Errorf("clone changed with original: %d", got)
	}
	if g.Equal(c) {
		t.Error("grids should differ after edit")
	}
	g.Set(0, 1, 1, 0)
	if !g.Equal(c) {
		t.Error("grids should be equal again")
	}
}

func TestGrid_Replace(t *testing.T) {
	g := mustGrid(t, 2, 2, Uniform(0))
	other := mustGrid(t, 5, 3, Enumerate())
	other.AppendLayer(Uniform(8))

	g.Replace(other)
	if !g.Equal(other) {
		t.Fatal("replace did not copy content")
	}
	other.Set(0, 0, 0, 99)
	if got, _ := g.Get(0, 0, 0); got != 0 {
		t.Errorf("replace kept a reference to the source: %d", got)
	}
}

func TestGrid_Adopt(t *testing.T) {
	g := mustGrid(t, 2, 2, Uniform(0))
	if err := g.Rescale(1.2); err != nil {
		t.Fatalf("Rescale failed: %v", err)
	}
	other := mustGrid(t, 3, 3, Enumerate())
	other.Rescale(4)

	g.Adopt(other)
	if !g.Equal(other) {
		t.Fatal("adopt did not copy content")
	}
	if g.Scale() != 1.2 {
		t.Errorf("scale = %v, expected the adopting grid's 1.2", g.Scale())
	}
}

func TestGrid_LayerLimit(t *testing.T) {
	g := mustGrid(t, 1, 1, Uniform(0))

	if err := g.StepOverlay(MaxLayers-1, Uniform(602)); err != nil {
		t.Fatalf("StepOverlay to the last layer failed: %v", err)
	}
	if g.LayerCount() != MaxLayers {
		t.Fatalf("expected %d layers, got %d", MaxLayers, g.LayerCount())
	}

	if err := g.StepOverlay(1, Uniform(602)); !errors.Is(err, ErrLayerLimit) {
		t.Errorf("expected ErrLayerLimit, got %v", err)
	}
	if err := g.AppendLayer(Uniform(602)); !errors.Is(err, ErrLayerLimit) {
		t.Errorf("expected ErrLayerLimit from AppendLayer, got %v", err)
	}
	if g.LayerCount() != MaxLayers || g.Active() != MaxLayers-1 {
		t.Errorf("failed step changed the grid: %d layers, active %d", g.LayerCount(), g.Active())
	}

	if _, err := FromLayers(1, 1, make([][]int, MaxLayers+1), 0, 1); !errors.Is(err, ErrLayerLimit) {
		t.Errorf("expected ErrLayerLimit from FromLayers, got %v", err)
	}
}

func TestFromLayers(t *testing.T) {
	g, err := FromLayers(2, 2, [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}}, 1, 2)
	if err != nil {
		t.Fatalf("FromLayers failed: %v", err)
	}
	if got, _ := g.Get(1, 1, 0); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if g.Active() != 1 || g.Scale() != 2 {
		t.Errorf("unexpected active/scale %d/%v", g.Active(), g.Scale())
	}

	if _, err := FromLayers(2, 2, [][]int{{1, 2, 3}}, 0, 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize for short layer, got %v", err)
	}
	if _, err := FromLayers(2, 2, [][]int{{1, 2, 3, 4}}, 1, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for active, got %v", err)
	}
}

func TestGrid_Rows(t *testing.T) {
	g := mustGrid(t, 2, 3, Enumerate())
	rows, err := g.Rows(0)
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 || len(rows[1]) != 3 || rows[1][2] != 5 {
		t.Errorf("unexpected rows %v", rows)
	}
	rows[0] = append(rows[0], 100)
	if rows[1][0] != 3 {
		t.Error("appending to one row overwrote the next")
	}
}

func TestCellsInRect(t *testing.T) {
	got := CellsInRect(1, 2, 0, 1)
	want := []Cell{{0, 1}, {0, 2}, {1, 1}, {1, 2}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	single := CellsInRect(3, 3, 3, 3)
	if len(single) != 1 || single[0] != (Cell{3, 3}) {
		t.Errorf("expected single cell, got %v", single)
	}
}

func TestFillKind_String(t *testing.T) {
	tests := []struct {
		kind     FillKind
		expected string
	}{
		{FillUniform, "uniform"},
		{FillEnumerate, "enumerate"},
		{FillRandom, "random"},
		{FillKind(9), "Unknown(9)"},
	}
	for _, tc := range tests {
		if tc.kind.String() != tc.expected {
			t.Errorf("%d.String() = %q, expected %q", tc.kind, tc.kind.String(), tc.expected)
		}
		if tc.kind <= FillRandom {
			parsed, err := ParseFillKind(tc.expected)
			if err != nil || parsed != tc.kind {
				t.Errorf("ParseFillKind(%q) = %v, %v", tc.expected, parsed, err)
			}
		}
	}
	if _, err := ParseFillKind("noise"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
