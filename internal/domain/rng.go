package domain

import (
	"hash/fnv"
	"math/rand"
)

// Stream is the deterministic per-session random source. Every randomized
// decision in a session (deck shuffles, role distribution, start seat) draws
// from this single stream in a fixed call order, so a session replays
// identically from its seed.
type Stream struct {
	rng *rand.Rand
}

// NewStream seeds a stream from the session identifier.
func NewStream(seed string) *Stream {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return &Stream{rng: rand.New(rand.NewSource(int64(h.Sum64())))}
}

// Intn returns a uniform value in [0, n).
func (s *Stream) Intn(n int) int {
	return s.rng.Intn(n)
}

// Shuffle permutes n elements through the swap function.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}
