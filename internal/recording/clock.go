package recording

import "time"

// Clock is the time source of the recording loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Feeder is fed once per iteration of the recording loop, and while
// waiting for the cancel button to be released.
type Feeder interface {
	Feed()
}

type nopFeeder struct{}

func (nopFeeder) Feed() {}
