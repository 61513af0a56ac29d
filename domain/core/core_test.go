package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchIDIsUniqueAndParsable(t *testing.T) {
	seen := make(map[BatchID]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := NewBatchID()
		require.False(t, id.IsZero())
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		parsed, err := ParseBatchID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestParseBatchID(t *testing.T) {
	tests := []struct {
		input string
		want  BatchID
		err   bool
	}{
		{"batch-123", "batch-123", false},
		{"  run_2.a  ", "run_2.a", false},
		{"", "", true},
		{"   ", "", true},
		{"../etc", "", true},
		{".hidden", "", true},
		{"a/b", "", true},
		{"with space", "", true},
		{strings.Repeat("x", 65), "", true},
	}

	for _, tt := range tests {
		got, err := ParseBatchID(tt.input)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidBatchID, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestHashShort(t *testing.T) {
	h := NewHash([]byte("config"))
	assert.Len(t, h.String(), 64)
	assert.Equal(t, h.String()[:12], h.Short())
	assert.Equal(t, h, NewHash([]byte("config")))
	assert.NotEqual(t, h, NewHash([]byte("other")))
	assert.Equal(t, "abc", Hash("abc").Short())
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	ts := Now()
	assert.Equal(t, ts.Time(), ts.Time().Truncate(time.Microsecond))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Time().Equal(back.Time()))
	assert.True(t, Timestamp{}.IsZero())
}

func TestNotFoundErrors(t *testing.T) {
	assert.True(t, IsNotFoundError(ErrPresetNotFound))
	assert.True(t, IsNotFoundError(NewNotFoundError("batch", "b1")))
	assert.False(t, IsNotFoundError(ErrNonDeterministic))
}
