// Package lockout implements the persistent attack lockout: a single
// flash-backed counter that survives power cycles, so that resetting the
// board can never shorten a delay already imposed on an attacker.
package lockout

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/janisbent/ectf-workshop/flash"
	"github.com/janisbent/ectf-workshop/halt"
)

// ErrAbandoned is the sentinel pipeline callers return alongside Attack:
// it tells a dispatcher the request must get no response of any kind,
// not even an error response, rather than the ordinary "this request
// failed" path.
var ErrAbandoned = errors.New("lockout: request abandoned")

const (
	// MaxPeriods is the maximum number of periods the counter can hold;
	// any persisted value above this is clamped on boot.
	MaxPeriods = 60

	// Period is the fixed delay a single count represents.
	Period = 100 * time.Millisecond

	counterPage = 0
)

// Lockout owns the single persistent counter page. Only Process and
// Attack ever modify it.
type Lockout struct {
	backend flash.Backend
	sleep   func(time.Duration)
}

// New wraps a single-page flash backend as the lockout counter. sleep is
// the delay primitive to call once per period; pass nil to use
// time.Sleep. Tests inject a fast or counting sleep function instead.
func New(backend flash.Backend, sleep func(time.Duration)) *Lockout {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Lockout{backend: backend, sleep: sleep}
}

func (l *Lockout) read() uint32 {
	page, err := l.backend.ReadPage(counterPage)
	if err != nil {
		halt.CatchFire("lockout: flash read primitive failed")
	}
	return binary.LittleEndian.Uint32(page[:4])
}

func (l *Lockout) write(counter uint32) {
	var page [flash.PageSize]byte
	binary.LittleEndian.PutUint32(page[:4], counter)
	if err := l.backend.WritePage(counterPage, page); err != nil {
		halt.CatchFire("lockout: flash write primitive failed")
	}
}

// Process runs at boot, before any host message is serviced: it reads the
// persisted counter, clamps it to MaxPeriods, then ticks it down to zero,
// persisting after every tick so a power cut mid-lockout only ever loses
// at most one period of delay.
func (l *Lockout) Process() {
	counter := l.read()
	if counter > MaxPeriods {
		counter = MaxPeriods
		l.write(counter)
	}

	for counter > 0 {
		l.sleep(Period)
		counter--
		l.write(counter)
	}
}

// Attack sets the counter to the maximum and runs the lockout loop to
// completion in place before returning control to the caller. Callers
// must not treat that return as success: the request that provoked it
// is abandoned, and must be reported up as ErrAbandoned rather than
// answered normally.
func (l *Lockout) Attack() {
	l.write(MaxPeriods)
	l.Process()
}
