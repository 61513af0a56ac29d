package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the hex SHA-256 fingerprint of an experiment configuration
type Hash string

// NewHash fingerprints data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (h Hash) String() string { return string(h) }

// Short returns the first 12 hex characters, used in logs and reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}
