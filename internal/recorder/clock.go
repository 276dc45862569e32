package recorder

import "time"

// Clock supplies the wall-clock instant used for generated run ids and
// creation stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns c.T in UTC.
func (c FixedClock) Now() time.Time {
	return c.T.UTC()
}
