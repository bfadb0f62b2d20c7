package insight

import "time"

// Clock is the only source of "now" for the Engine.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used for replay and tests.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
