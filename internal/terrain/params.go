// Package terrain generates side-view terrain into layer 0 of a tile grid.
package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// Palette holds the tile IDs the generator writes.
type Palette struct {
	Empty   int `yaml:"empty" json:"empty"`
	Grass   int `yaml:"grass" json:"grass"`
	Sand    int `yaml:"sand" json:"sand"`
	Dirt    int `yaml:"dirt" json:"dirt"`
	Stone   int `yaml:"stone" json:"stone"`
	Iron    int `yaml:"iron" json:"iron"`
	Coal    int `yaml:"coal" json:"coal"`
	Diamond int `yaml:"diamond" json:"diamond"`
	Leaves  int `yaml:"leaves" json:"leaves"`
	Trunk   int `yaml:"trunk" json:"trunk"`
	Water   int `yaml:"water" json:"water"`
	Cave    int `yaml:"cave" json:"cave"`
}

// DefaultPalette returns the IDs of the bundled minecraft-style atlas.
func DefaultPalette() Palette {
	return Palette{
		Empty:   602,
		Grass:   332,
		Sand:    18,
		Dirt:    200,
		Stone:   308,
		Iron:    395,
		Coal:    161,
		Diamond: 168,
		Leaves:  420,
		Trunk:   451,
		Water:   2,
		Cave:    602,
	}
}

// Validate checks every palette ID is a valid index into atlas.
func (p Palette) Validate(atlas tilemap.Atlas) error {
	if atlas == nil || atlas.TileCount() <= 0 {
		return tilemap.ErrInvalidAtlas
	}
	n := atlas.TileCount()
	ids := map[string]int{
		"empty": p.Empty, "grass": p.Grass, "sand": p.Sand, "dirt": p.Dirt,
		"stone": p.Stone, "iron": p.Iron, "coal": p.Coal, "diamond": p.Diamond,
		"leaves": p.Leaves, "trunk": p.Trunk, "water": p.Water, "cave": p.Cave,
	}
	for name, id := range ids {
		if id < 0 || id >= n {
			return fmt.Errorf("palette %s tile %d outside atlas [0,%d)", name, id, n)
		}
	}
	return nil
}

// OreSettings describes one ore band.
type OreSettings struct {
	Chance float64 `yaml:"chance"`
	// MinDepth is the fraction of the grid height below which the ore may
	// appear (rows strictly greater than MinDepth*height).
	MinDepth float64 `yaml:"min_depth"`
}

// CaveSettings configures the cave carving pass.
type CaveSettings struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Frequency float64 `yaml:"frequency"`
	Margin    int     `yaml:"margin"`
	Alpha     float64 `yaml:"alpha"`
	Beta      float64 `yaml:"beta"`
	Octaves   int32   `yaml:"octaves"`
}

// Settings is the height-independent generator configuration. Row
// positions are fractions of the grid height so one configuration works
// for any grid size.
type Settings struct {
	Surface    float64      `yaml:"surface"`
	SeaLevel   float64      `yaml:"sea_level"`
	StepRange  int          `yaml:"step_range"`
	Smoothing  float64      `yaml:"smoothing"`
	TreeChance float64      `yaml:"tree_chance"`
	DirtMin    int          `yaml:"dirt_min"`
	DirtMax    int          `yaml:"dirt_max"`
	Iron       OreSettings  `yaml:"iron"`
	Coal       OreSettings  `yaml:"coal"`
	Diamond    OreSettings  `yaml:"diamond"`
	Caves      CaveSettings `yaml:"caves"`
}

// DefaultSettings returns the settings tuned for a 256-row world: surface
// starting at row 185, sea level at 193, iron below 195, coal below 125 and
// diamond below 240.
func DefaultSettings() Settings {
	return Settings{
		Surface:    185.0 / 256,
		SeaLevel:   193.0 / 256,
		StepRange:  256,
		Smoothing:  256,
		TreeChance: 0.1,
		DirtMin:    2,
		DirtMax:    3,
		Iron:       OreSettings{Chance: 0.01, MinDepth: 195.0 / 256},
		Coal:       OreSettings{Chance: 0.03, MinDepth: 125.0 / 256},
		Diamond:    OreSettings{Chance: 0.001, MinDepth: 240.0 / 256},
		Caves: CaveSettings{
			Enabled:   true,
			Threshold: 0.22,
			Frequency: 0.09,
			Margin:    6,
			Alpha:     2,
			Beta:      2,
			Octaves:   3,
		},
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	if s.Smoothing <= 0 {
		return errors.New("smoothing must be positive")
	}
	if s.StepRange < 0 {
		return errors.New("step_range must not be negative")
	}
	if s.DirtMin < 0 || s.DirtMax < s.DirtMin {
		return fmt.Errorf("invalid dirt run range [%d,%d]", s.DirtMin, s.DirtMax)
	}
	for name, f := range map[string]float64{
		"surface": s.Surface, "sea_level": s.SeaLevel, "iron.min_depth": s.Iron.MinDepth,
		"coal.min_depth": s.Coal.MinDepth, "diamond.min_depth": s.Diamond.MinDepth,
	} {
		if f < 0 || f > 1 {
			return fmt.Errorf("%s must be a fraction of the height, got %v", name, f)
		}
	}
	if s.Iron.Chance < 0 || s.Coal.Chance < 0 || s.Diamond.Chance < 0 ||
		s.Iron.Chance+s.Coal.Chance+s.Diamond.Chance > 1 {
		return errors.New("ore chances must be non-negative and sum to at most 1")
	}
	if s.Caves.Enabled && s.Caves.Frequency <= 0 {
		return errors.New("caves.frequency must be positive")
	}
	return nil
}

// Params resolves the settings to absolute rows for a grid of the given
// height.
func (s Settings) Params(height int) Params {
	row := func(f float64) int { return int(f * float64(height)) }
	sea := row(s.SeaLevel)
	return Params{
		SurfaceRow:    s.Surface * float64(height),
		SeaLevel:      sea,
		WaterRow:      sea,
		StepRange:     s.StepRange,
		Smoothing:     s.Smoothing,
		TreeChance:    s.TreeChance,
		DirtMin:       s.DirtMin,
		DirtMax:       s.DirtMax,
		IronChance:    s.Iron.Chance,
		IronMinRow:    row(s.Iron.MinDepth),
		CoalChance:    s.Coal.Chance,
		CoalMinRow:    row(s.Coal.MinDepth),
		DiamondChance: s.Diamond.Chance,
		DiamondMinRow: row(s.Diamond.MinDepth),
		Caves:         s.Caves,
	}
}

// Params are the absolute generator parameters for one grid height.
// Rows count from the top of the grid.
type Params struct {
	SurfaceRow float64
	SeaLevel   int
	WaterRow   int
	StepRange  int
	Smoothing  float64
	TreeChance float64
	DirtMin    int
	DirtMax    int

	IronChance    float64
	IronMinRow    int
	CoalChance    float64
	CoalMinRow    int
	DiamondChance float64
	DiamondMinRow int

	Caves CaveSettings
}
