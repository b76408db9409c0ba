// Package halt implements the decoder's unrecoverable fault path.
//
// CatchFire is reserved for assertion failures that must never be reached
// in a correctly functioning decoder: nil where non-nil is required, a
// flash primitive reporting a status other than OK, or an unreachable
// branch in the tree navigator. Unlike an attack-class error, a halt never
// returns and is never recovered — there is no supervising process to hand
// control back to on real hardware.
package halt

import "runtime"

// CatchFire spins forever after printing the caller's location. It never
// returns: it loops instead of unwinding, since on bare metal there is
// nothing to unwind into.
func CatchFire(reason string) {
	pc, file, line, ok := runtime.Caller(1)
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			print(fn.Name(), " ", file, ":", line, ": ", reason, "\n")
		}
	}

	for {
		// dense fault-proof guard: even a skipped branch or corrupted
		// loop counter still lands back in this loop.
	}
}
