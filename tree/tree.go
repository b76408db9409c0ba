// Package tree implements the key-tree navigator: a subscription's
// minimal node-cover of [start, end] over a height-64 binary tree keyed
// by timestamp, and derivation of the 32-byte symmetric key for any
// timestamp under that cover.
package tree

import (
	"errors"

	"github.com/janisbent/ectf-workshop/bits"
	"github.com/janisbent/ectf-workshop/board"
	"github.com/janisbent/ectf-workshop/crypto"
	"github.com/janisbent/ectf-workshop/fault"
	"github.com/janisbent/ectf-workshop/halt"
)

// ErrOutOfRange indicates t falls outside [start, end]: a benign, expected
// outcome near subscription expiry or before its start, not an attack.
var ErrOutOfRange = errors.New("tree: timestamp out of subscription range")

// Vertex names one cover node: its subtree holds every timestamp whose top
// Bits bits equal Prefix; the remaining 64-Bits levels vary.
type Vertex struct {
	Prefix uint64
	Bits   int
}

// Cover is the minimal-subset representation a Subscription stores: an
// ordered list of node keys alongside the (start, end, count) needed to
// navigate it. It decouples the navigator from the store package's
// on-flash layout.
type Cover struct {
	Start    uint64
	End      uint64
	KeyCount int
	NodeKey  func(i int) [16]byte
}

// KeyIndexForTime selects the single cover node whose subtree contains t,
// returning its index into the cover and the vertex it represents.
func KeyIndexForTime(cov Cover, t uint64) (int, Vertex, error) {
	var outOfRange fault.Flag
	outOfRange.Set(t < cov.Start || t > cov.End)

	if fault.MustBlock(&outOfRange) {
		return 0, Vertex{}, ErrOutOfRange
	}

	startPrefix := cov.Start
	endPrefix := cov.End
	reducedT := t
	fixedBits := 64
	startIdx := 0
	endIdx := cov.KeyCount - 1

	for {
		if startIdx > endIdx {
			halt.CatchFire("tree: cursor window inverted during navigation")
		}

		startLow := bits.Get64(&startPrefix, 0, 1) == 0
		endLow := bits.Get64(&endPrefix, 0, 1) == 1

		switch {
		case startLow && endLow:
			startPrefix >>= 1
			endPrefix >>= 1
			reducedT >>= 1
			fixedBits--

		case bits.Get64(&startPrefix, 0, 1) == 1:
			if startPrefix == reducedT {
				return startIdx, Vertex{Prefix: startPrefix, Bits: fixedBits}, nil
			}
			startPrefix++
			startIdx++

		default:
			if endPrefix == reducedT {
				return endIdx, Vertex{Prefix: endPrefix, Bits: fixedBits}, nil
			}
			if endPrefix == 0 {
				// Unreachable for any valid cover: a well-formed minimal
				// cover never asks to decrement past 0. Treat it as a
				// fault rather than wrapping to 2^64-1.
				halt.CatchFire("tree: end_prefix underflow")
			}
			endPrefix--
			endIdx--
		}
	}
}

// DeriveTreeKey walks from a cover node down to leaf t, applying
// kdf_child once per remaining level (MSB-first among the bits below the
// cover node) and finishing with kdf_leaf.
func DeriveTreeKey(t uint64, nodeKey [16]byte, v Vertex, secrets board.Secrets) ([32]byte, error) {
	key := nodeKey

	for level := v.Bits; level < 64; level++ {
		shift := 63 - level
		bit := (t >> uint(shift)) & 1

		var side board.Side
		if bit == 0 {
			side = board.Left
		} else {
			side = board.Right
		}

		var err error
		key, err = crypto.KDFChild(key, secrets.Key(side))
		if err != nil {
			return [32]byte{}, err
		}
	}

	return crypto.KDFLeaf(key)
}
