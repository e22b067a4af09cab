package game

import "time"

// Stopper cancels a pending callback. Stop reports whether the call was prevented.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d. Sessions take one so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// NewSystemScheduler returns a Scheduler backed by time.AfterFunc.
func NewSystemScheduler() Scheduler {
	return systemScheduler{}
}
