// Package delay implements the pool- and TRNG-backed randomized delays of
// the fault-injection countermeasures: the redundant-predicate discipline
// itself lives in the sibling fault package, kept separate so that
// predicate evaluation never needs to pull in the entropy pool's dependency
// on crypto.
package delay

import (
	"github.com/janisbent/ectf-workshop/entropy"
	"github.com/janisbent/ectf-workshop/rng"
)

// sink accumulates spin's busy-wait work. It is a package variable, so the
// loop has an observable side effect and is not folded away by the
// optimizer.
var sink uint32

func spin(n int) {
	for i := 0; i < n; i++ {
		sink += uint32(i)
	}
}

// SmallDelay draws a 0..255 tick count from the pre-filled entropy pool
// and spins for that many ticks. It must not call the TRNG directly: this
// path runs in time-critical code, after every crypto call, where blocking
// on hardware entropy generation is unacceptable.
func SmallDelay(pool *entropy.Pool) {
	ticks := int(pool.Byte())
	spin(ticks)
}

// LargeDelay draws a fresh 16-bit value directly from src and spins for
// that many ticks. It is used once per dispatched command, before the
// command is handled, to desynchronize timing from the request's arrival
// on the host link.
func LargeDelay(src rng.Source) {
	ticks := int(rng.GetU16(src))
	spin(ticks)
}
