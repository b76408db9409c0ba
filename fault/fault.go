// Package fault implements the decoder's fault-injection countermeasures:
// randomized delays decoupling timing from observable decisions, and a
// redundant-predicate discipline that tolerates a single glitched read at
// any security-gating branch. The adversary model is a glitch that flips at
// most one predicate read per decision point; every security gate in this
// repository reads its guarding variable three times through this package
// rather than comparing it once.
package fault

import (
	"runtime"
	"sync/atomic"
)

// Flag is a security-gating boolean that must survive compiler elision of
// its three reads. It is backed by an atomic uint32 rather than a plain
// bool: internal/reg.Get's use of an atomic load in place of a bare pointer
// dereference is the same idiom, there to defeat reordering around a
// hardware register; here it defeats the optimizer folding three identical
// loads into one.
type Flag struct {
	v uint32
}

// Set stores b into the flag.
func (f *Flag) Set(b bool) {
	var v uint32
	if b {
		v = 1
	}
	atomic.StoreUint32(&f.v, v)
}

// read performs one independent atomic load of the flag. runtime.KeepAlive
// pins the flag across the call so three consecutive reads cannot be
// merged by the compiler.
func (f *Flag) read() bool {
	v := atomic.LoadUint32(&f.v)
	runtime.KeepAlive(f)
	return v != 0
}

// MustBlock evaluates a BLOCK-class predicate (e.g. "signature failed")
// three times and OR-combines the reads, so that a single glitched read
// that clears the flag still results in the action being blocked.
func MustBlock(f *Flag) bool {
	r1 := f.read()
	r2 := f.read()
	r3 := f.read()
	return r1 || r2 || r3
}

// MustAllow evaluates an ALLOW-class predicate (e.g. "signature passed")
// three times and AND-combines the reads, so that a single glitched read
// that sets the flag cannot by itself admit the action.
func MustAllow(f *Flag) bool {
	r1 := f.read()
	r2 := f.read()
	r3 := f.read()
	return r1 && r2 && r3
}
