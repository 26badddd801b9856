package tilemap

import (
	"fmt"
	"math/rand/v2"
)

// Atlas is the part of a tile atlas the grid needs: the exclusive upper
// bound of valid tile IDs.
type Atlas interface {
	TileCount() int
}

// FixedAtlas is an Atlas with a known tile count and nothing else.
type FixedAtlas int

// TileCount returns the number of tiles.
func (a FixedAtlas) TileCount() int { return int(a) }

// FillKind names a fill policy.
type FillKind uint8

// Fill kinds.
const (
	FillUniform FillKind = iota
	FillEnumerate
	FillRandom
)

// String returns the policy name used in config and the HTTP API.
func (k FillKind) String() string {
	switch k {
	case FillUniform:
		return "uniform"
	case FillEnumerate:
		return "enumerate"
	case FillRandom:
		return "random"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ParseFillKind converts a policy name to its FillKind.
func ParseFillKind(s string) (FillKind, error) {
	switch s {
	case "uniform":
		return FillUniform, nil
	case "enumerate":
		return FillEnumerate, nil
	case "random":
		return FillRandom, nil
	default:
		return 0, fmt.Errorf("unknown fill policy %q", s)
	}
}

// FillPolicy describes how a new layer is populated.
type FillPolicy struct {
	Kind  FillKind
	Tile  int
	Atlas Atlas
	Rand  *rand.Rand
}

// Uniform fills every cell with id.
func Uniform(id int) FillPolicy {
	return FillPolicy{Kind: FillUniform, Tile: id}
}

// Enumerate sets cell (i, j) to i*width+j so every tile ID up to the cell
// count appears once. Used for the tile picker.
func Enumerate() FillPolicy {
	return FillPolicy{Kind: FillEnumerate}
}

// Random draws every cell uniformly from [0, atlas.TileCount()).
// A nil rng uses a freshly seeded source.
func Random(atlas Atlas, rng *rand.Rand) FillPolicy {
	return FillPolicy{Kind: FillRandom, Atlas: atlas, Rand: rng}
}

func (p FillPolicy) layer(height, width int) ([]int, error) {
	cells := make([]int, height*width)
	switch p.Kind {
	case FillUniform:
		for i := range cells {
			cells[i] = p.Tile
		}
	case FillEnumerate:
		for i := range cells {
			cells[i] = i
		}
	case FillRandom:
		if p.Atlas == nil || p.Atlas.TileCount() <= 0 {
			return nil, ErrInvalidAtlas
		}
		n := p.Atlas.TileCount()
		rng := p.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		for i := range cells {
			cells[i] = rng.IntN(n)
		}
	default:
		return nil, fmt.Errorf("unknown fill kind %d", p.Kind)
	}
	return cells, nil
}
