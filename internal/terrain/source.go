package terrain

import "math/rand/v2"

// source is the pseudo-random stream owned by one generator run.
//
// Every per-cell draw adds row+col to a running seed and reseeds the stream
// with it before taking one value. Cells on the same anti-diagonal therefore
// advance the seed by the same amount; output is reproducible for a fixed
// seed and grid size.
type source struct {
	seed int64
	pcg  *rand.PCG
	rng  *rand.Rand
}

func newSource(seed int64) *source {
	pcg := rand.NewPCG(0, 0)
	s := &source{seed: seed, pcg: pcg, rng: rand.New(pcg)}
	s.reseed()
	return s
}

func (s *source) reseed() {
	u := uint64(s.seed)
	s.pcg.Seed(u, mix64(u))
}

// draw advances the running seed by row+col, reseeds, and returns one value
// in [0, 1).
func (s *source) draw(row, col int) float64 {
	s.seed += int64(row + col)
	s.reseed()
	return s.rng.Float64()
}

// intRange returns an integer in [lo, hi] from the current stream.
func (s *source) intRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// mix64 is the splitmix64 finalizer. It spreads nearby seeds across the
// whole PCG state.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// NewSeed returns a fresh random seed. Callers that were not given a seed
// use this on every call.
func NewSeed() int64 {
	return rand.Int64N(10_000_000)
}
