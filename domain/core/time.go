package core

import (
	"time"
)

// Timestamp is a UTC instant stored at microsecond precision, the resolution
// postgres keeps, so a summary read back compares equal to the one written.
type Timestamp time.Time

// Now returns the current time truncated to microseconds
func Now() Timestamp {
	return Timestamp(time.Now().UTC().Truncate(time.Microsecond))
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is unset
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tt time.Time
	if err := tt.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tt.UTC())
	return nil
}
