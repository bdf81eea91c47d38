package twinkle

import "math/rand/v2"

// Source is a uniform random source with full 32-bit range.
type Source interface {
	Uint32() uint32
}

// NewSource returns a PCG-backed Source. The same seed yields the same
// animation, which keeps simulations reproducible.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomColor draws each channel uniformly from [0, max).
func RandomColor(rng Source, max int) Color {
	m := uint32(max)
	return Color{
		R: uint8(rng.Uint32() % m),
		G: uint8(rng.Uint32() % m),
		B: uint8(rng.Uint32() % m),
	}
}
