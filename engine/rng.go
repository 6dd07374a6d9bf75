package engine

import "math"

// rng is a seedable, byte-exact pseudo-random generator modeled on the
// "alea" algorithm: three fractional accumulators plus a carry, mixed with a
// Johannes Baagøe style string-seeding step. The exact recurrence is the
// contract — replaying the same seed on any platform must reproduce the
// same [0,1) sequence, since workflow code may branch on it.
type rng struct {
	s0, s1, s2 float64
	c          float64
}

// newRNG seeds the generator from an arbitrary-length byte vector. An empty
// seed is still deterministic: it hashes to a fixed fallback vector so a
// freshly-initialized engine with no randomness seed never panics.
func newRNG(seed []byte) *rng {
	if len(seed) == 0 {
		seed = []byte{0}
	}
	r := &rng{c: 1}
	mash := newMash()
	r.s0 = mash.hash(seed)
	r.s1 = mash.hash(seed)
	r.s2 = mash.hash(seed)
	return r
}

// Float64 returns the next uniform draw in [0, 1).
func (r *rng) Float64() float64 {
	t := 2091639*r.s0 + r.c*2.3283064365386963e-10 // 2^-32
	r.s0 = r.s1
	r.s1 = r.s2
	r.c = math.Floor(t)
	r.s2 = t - r.c
	return r.s2
}

// mash implements the string-to-float seeding hash alea uses to turn
// arbitrary seed bytes into the three initial fractional state values.
type mash struct {
	n float64
}

func newMash() *mash { return &mash{n: 0xefc8249d} }

func (m *mash) hash(data []byte) float64 {
	for _, b := range data {
		m.n += float64(b)
		h := 0.02519603282416938 * m.n
		m.n = uint32frac(h)
		h *= m.n
		m.n = uint32frac(h)
		h *= m.n
		m.n = uint32frac(h)
	}
	return m.n
}

// uint32frac keeps the fractional part of h (wrapped into [0, 1) when h is
// negative) quantized to 32 bits: the fraction is scaled by 2^32, floored to
// an integer, and rescaled into [0, 1).
func uint32frac(h float64) float64 {
	i := math.Mod(h, 1) * 4294967296 // 2^32
	if i < 0 {
		i += 4294967296
	}
	return math.Floor(i) * 2.3283064365386963e-10
}
