// Package store implements the subscription store: a fixed 9-slot flash
// array, magic-guarded slot validity, and the channel-update policy that
// decides which slot an incoming subscription lands in.
package store

import (
	"encoding/binary"
	"errors"

	"github.com/janisbent/ectf-workshop/flash"
)

const (
	// Slots is the fixed number of subscription slots: slot 0 holds the
	// baked-in channel-0 subscription, slots 1..8 are user-updatable.
	Slots = 9

	// MaxTreeKeys is the largest cover a subscription's interval can be
	// expressed with: a height-64 binary tree's minimal node-cover of any
	// interval never needs more than 2*(64-1) nodes.
	MaxTreeKeys = 126

	// Magic is the fixed sentinel that marks a slot VALID.
	Magic uint32 = 0x41594E42

	recordSize = MaxTreeKeys*16 + 32 + 8 + 8 + 4 + 4 + 4 + 4
)

// Subscription is one persisted slot's payload, laid out on the wire (and
// on flash) as: ktree[126][16], kch[32], start(u64 LE), end(u64 LE),
// channel(u32 LE), key_count(u32 LE), magic(u32 LE), 4-byte pad.
type Subscription struct {
	KTree    [MaxTreeKeys][16]byte
	Kch      [32]byte
	Start    uint64
	End      uint64
	Channel  uint32
	KeyCount uint32
	Magic    uint32
}

// Valid reports whether the slot's magic equals the sentinel. A slot is
// VALID iff this holds; the magic is written last within a page-erase-
// then-write cycle so a torn write leaves the slot invalid.
func (s *Subscription) Valid() bool {
	return s.Magic == Magic
}

// Marshal encodes s into its fixed 2080-byte flash/wire representation.
func (s *Subscription) Marshal() [recordSize]byte {
	var out [recordSize]byte
	off := 0

	for i := 0; i < MaxTreeKeys; i++ {
		copy(out[off:], s.KTree[i][:])
		off += 16
	}

	copy(out[off:], s.Kch[:])
	off += 32

	binary.LittleEndian.PutUint64(out[off:], s.Start)
	off += 8
	binary.LittleEndian.PutUint64(out[off:], s.End)
	off += 8
	binary.LittleEndian.PutUint32(out[off:], s.Channel)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], s.KeyCount)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], s.Magic)
	off += 4
	// 4-byte pad, left zero

	return out
}

// Unmarshal decodes a Subscription from its fixed 2080-byte representation.
func Unmarshal(b []byte) (*Subscription, error) {
	if len(b) < recordSize {
		return nil, errors.New("store: record too short")
	}

	s := &Subscription{}
	off := 0

	for i := 0; i < MaxTreeKeys; i++ {
		copy(s.KTree[i][:], b[off:off+16])
		off += 16
	}

	copy(s.Kch[:], b[off:off+32])
	off += 32

	s.Start = binary.LittleEndian.Uint64(b[off:])
	off += 8
	s.End = binary.LittleEndian.Uint64(b[off:])
	off += 8
	s.Channel = binary.LittleEndian.Uint32(b[off:])
	off += 4
	s.KeyCount = binary.LittleEndian.Uint32(b[off:])
	off += 4
	s.Magic = binary.LittleEndian.Uint32(b[off:])

	return s, nil
}

// pagePut places a Subscription's marshaled record at the start of a flash
// page, zero-padding the remainder.
func pagePut(s *Subscription) [flash.PageSize]byte {
	var page [flash.PageSize]byte
	rec := s.Marshal()
	copy(page[:], rec[:])
	return page
}

func pageGet(page [flash.PageSize]byte) (*Subscription, error) {
	return Unmarshal(page[:recordSize])
}
