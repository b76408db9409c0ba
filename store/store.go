package store

import (
	"errors"

	"github.com/janisbent/ectf-workshop/fault"
	"github.com/janisbent/ectf-workshop/flash"
	"github.com/janisbent/ectf-workshop/halt"
)

// ErrFull is returned by Update when no slot is available for a new
// channel.
var ErrFull = errors.New("store: no free or matching slot")

// ErrChannelZero is returned by Update when the decrypted record names
// channel 0, which is immutable.
var ErrChannelZero = errors.New("store: channel 0 is immutable")

// AttackError marks an update record that failed post-decryption
// validation (end < start, or bad magic): this is attack-class, not a
// benign error.
type AttackError struct{ reason string }

func (e *AttackError) Error() string { return "store: attack detected: " + e.reason }

// Store is the 9-slot subscription store, flash-backed. Only Update
// writes it; readers obtain an immutable snapshot (the decoded
// Subscription value) on each access.
type Store struct {
	backend flash.Backend
}

// New wraps a flash backend as a subscription store. The backend must
// expose exactly Slots pages.
func New(backend flash.Backend) (*Store, error) {
	if backend.Pages() != Slots {
		return nil, errors.New("store: backend must expose 9 pages")
	}
	return &Store{backend: backend}, nil
}

// Get returns slot i if i is in range and its magic validates, else nil.
// Validity is evaluated under the redundant-predicate ALLOW discipline:
// trusting an invalid slot's key material would be a security-relevant
// mistake, so a single glitched read must not admit it.
func (st *Store) Get(i int) (*Subscription, error) {
	if i < 0 || i >= Slots {
		return nil, nil
	}

	page, err := st.backend.ReadPage(i)
	if err != nil {
		halt.CatchFire("store: flash read primitive failed")
	}

	sub, err := pageGet(page)
	if err != nil {
		return nil, err
	}

	var valid fault.Flag
	valid.Set(sub.Valid())

	if !fault.MustAllow(&valid) {
		return nil, nil
	}

	return sub, nil
}

// FindByChannel linearly scans slots 0..8 and returns the first VALID
// slot whose channel equals ch, else nil.
func (st *Store) FindByChannel(ch uint32) (*Subscription, error) {
	for i := 0; i < Slots; i++ {
		sub, err := st.Get(i)
		if err != nil {
			return nil, err
		}
		if sub != nil && sub.Channel == ch {
			return sub, nil
		}
	}
	return nil, nil
}

// Write erases slot i and writes record. record.Magic must already equal
// Magic: write does not set it, so a caller that wants slot i to come up
// invalid after a torn write must never call Write with a record whose
// magic isn't already the sentinel.
func (st *Store) Write(i int, record *Subscription) error {
	if i < 0 || i >= Slots {
		return errors.New("store: slot index out of range")
	}
	if record.Magic != Magic {
		return errors.New("store: record magic must equal sentinel before write")
	}

	page := pagePut(record)
	if err := st.backend.WritePage(i, page); err != nil {
		halt.CatchFire("store: flash write primitive failed")
	}

	return nil
}

// SeedChannelZero writes the baked-in channel-0 subscription to slot 0.
// It exists for provisioning/testing; nothing at runtime calls it, since
// slot 0 is linker-patched on real hardware and never overwritten
// thereafter.
func (st *Store) SeedChannelZero(sub *Subscription) error {
	sub.Channel = 0
	sub.Magic = Magic
	return st.Write(0, sub)
}

// Update applies the store's validation and persistence policy to a
// verified, decrypted record s. The caller (the update pipeline) is
// responsible for signature verification and decryption; Update assumes s
// is otherwise untrusted wire content.
func (st *Store) Update(s *Subscription) error {
	if s.Channel == 0 {
		return ErrChannelZero
	}

	var attack fault.Flag
	attack.Set(s.End < s.Start || s.Magic != Magic)

	if fault.MustBlock(&attack) {
		return &AttackError{reason: "invalid interval or magic in decrypted record"}
	}

	s.Magic = Magic

	// First pass: reuse the slot already holding this channel.
	for i := 1; i < Slots; i++ {
		existing, err := st.Get(i)
		if err != nil {
			return err
		}
		if existing != nil && existing.Channel == s.Channel {
			return st.Write(i, s)
		}
	}

	// Second pass: take the first invalid (free) slot.
	for i := 1; i < Slots; i++ {
		existing, err := st.Get(i)
		if err != nil {
			return err
		}
		if existing == nil {
			return st.Write(i, s)
		}
	}

	return ErrFull
}
