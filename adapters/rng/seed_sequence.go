package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// domainTag separates our seed derivation from any other use of the same master seed
const domainTag = "epinet/seed-sequence/v1"

// SeedSequence splits a master seed into child ChaCha8 streams. Each child key
// is SHA-256(tag || master || index), so children are independent of each other
// and reproducible from (master, index) alone.
type SeedSequence struct{}

// NewSeedSequence returns the default stream source
func NewSeedSequence() *SeedSequence {
	return &SeedSequence{}
}

// ChildSeed returns the 32-byte ChaCha8 key for index
func (SeedSequence) ChildSeed(master uint64, index int) [32]byte {
	buf := make([]byte, 0, len(domainTag)+16)
	buf = append(buf, domainTag...)
	buf = binary.LittleEndian.AppendUint64(buf, master)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(index))
	return sha256.Sum256(buf)
}

// Stream returns the generator for trial index
func (s SeedSequence) Stream(master uint64, index int) *rand.Rand {
	return rand.New(rand.NewChaCha8(s.ChildSeed(master, index)))
}

// Spawn returns n fresh generators; callers must hand each to exactly one trial
func (s SeedSequence) Spawn(master uint64, n int) ([]*rand.Rand, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot spawn %d streams", n)
	}
	streams := make([]*rand.Rand, n)
	for i := range streams {
		streams[i] = s.Stream(master, i)
	}
	return streams, nil
}
