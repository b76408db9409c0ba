package rng

import (
	"encoding/binary"

	prngchacha "github.com/sixafter/prng-chacha"
)

// SimSource stands in for the RNGB hardware block on portable (non
// tamago,arm) builds and in tests, the same role internal/rng.GetLCGData
// played for boards without a TRNG — except here it is backed by a real
// CSPRNG (github.com/sixafter/prng-chacha) rather than a non-cryptographic
// LCG. Tests that need fixed vectors for the debiasing/pool logic use
// FixedSource instead.
type SimSource struct{}

// ReadWord returns one pseudo-random 32-bit word.
func (SimSource) ReadWord() uint32 {
	var b [4]byte
	if _, err := prngchacha.Reader.Read(b[:]); err != nil {
		panic("rng: simulated source failed: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}
