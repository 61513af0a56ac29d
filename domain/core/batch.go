package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxBatchIDLength bounds ids that end up in file names and URLs
const maxBatchIDLength = 64

// BatchID identifies one invocation of the Monte-Carlo runner over a list of
// experiments. Generated ids are UUIDv7 so they sort by creation time.
type BatchID string

// NewBatchID returns a time-ordered batch id
func NewBatchID() BatchID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return BatchID(id.String())
}

func (id BatchID) String() string { return string(id) }

// IsZero reports whether the id is unset
func (id BatchID) IsZero() bool { return id == "" }

// ParseBatchID accepts ids made of letters, digits, '-', '_' and '.', since
// batch ids name report files on disk.
func ParseBatchID(s string) (BatchID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBatchID)
	}
	if len(s) > maxBatchIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidBatchID, maxBatchIDLength)
	}
	if s[0] == '.' {
		return "", fmt.Errorf("%w: %q starts with a dot", ErrInvalidBatchID, s)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidBatchID, s, r)
		}
	}
	return BatchID(s), nil
}
