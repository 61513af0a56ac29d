package ports

import (
	"math/rand/v2"
)

// StreamSource derives independent random streams from a single master seed.
// Stream(master, i) depends only on (master, i), never on how many streams were
// requested before, so parallel trials get the same randomness however they are
// scheduled.
type StreamSource interface {
	// Stream returns the generator for trial index i
	Stream(master uint64, index int) *rand.Rand

	// Spawn returns generators for indices 0..n-1
	Spawn(master uint64, n int) ([]*rand.Rand, error)
}
