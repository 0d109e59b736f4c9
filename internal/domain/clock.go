package domain

import "github.com/jonboulle/clockwork"

// clock is the package-level time source used to stamp batches.
// Tests freeze it via SetClock for reproducible CollectedAt values.
var clock = clockwork.NewRealClock()

// SetClock swaps the batch time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
