// Package entropy implements the decoder's 128-byte entropy pool: a buffer
// refreshed via a keyed hash of a small TRNG seed, so that the
// fault-injection delay routines never block on the TRNG during
// time-critical code.
package entropy

import (
	"github.com/janisbent/ectf-workshop/crypto"
	"github.com/janisbent/ectf-workshop/rng"
)

const (
	// Size is the pool's fixed buffer length.
	Size = 128

	seedSize  = 8
	halfSize  = Size / 2
	indexOne  = 0x00000001
	indexTwo  = 0x00000002
)

// Pool is the fault-injection subsystem's entropy buffer. Only the
// dispatcher's refill hook writes it; only fault-injection primitives
// consume it.
type Pool struct {
	buf    [Size]byte
	cursor int
	filled bool
}

// NeedsRefill reports whether the cursor has reached the end of the pool,
// or the pool has never been filled.
func (p *Pool) NeedsRefill() bool {
	return !p.filled || p.cursor >= Size
}

// Refill draws an 8-byte seed from src, uses it as the key to two keyed
// hash calls over distinct 32-bit index messages (64 bytes of output
// each), and XORs the 128-byte result into the existing pool so residual
// entropy from the prior fill is never discarded outright. The cursor is
// reset to the start.
func (p *Pool) Refill(src rng.Source) error {
	var seed [seedSize]byte
	for i := 0; i < seedSize; i += 4 {
		w := src.ReadWord()
		seed[i] = byte(w >> 24)
		seed[i+1] = byte(w >> 16)
		seed[i+2] = byte(w >> 8)
		seed[i+3] = byte(w)
	}

	first, err := crypto.KeyedHash(seed[:], halfSize, indexMsg(indexOne))
	if err != nil {
		return err
	}

	second, err := crypto.KeyedHash(seed[:], halfSize, indexMsg(indexTwo))
	if err != nil {
		return err
	}

	for i := 0; i < halfSize; i++ {
		p.buf[i] ^= first[i]
		p.buf[halfSize+i] ^= second[i]
	}

	p.cursor = 0
	p.filled = true
	return nil
}

// Byte returns the next pool byte, advancing the cursor. The caller must
// have ensured the pool does not need a refill; a pool exhausted past Size
// returns zero bytes rather than panicking, since a small-delay primitive
// must never block or fail.
func (p *Pool) Byte() byte {
	if p.cursor >= Size {
		return 0
	}
	b := p.buf[p.cursor]
	p.cursor++
	return b
}

func indexMsg(index uint32) []byte {
	return []byte{byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)}
}
