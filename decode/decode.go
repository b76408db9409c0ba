// Package decode implements the frame decode pipeline: outer signature
// verification, outer decryption, timestamp monotonicity, key-tree
// navigation, inner decryption, and length validation.
package decode

import (
	"errors"

	"github.com/janisbent/ectf-workshop/board"
	"github.com/janisbent/ectf-workshop/crypto"
	"github.com/janisbent/ectf-workshop/delay"
	"github.com/janisbent/ectf-workshop/entropy"
	"github.com/janisbent/ectf-workshop/fault"
	"github.com/janisbent/ectf-workshop/lockout"
	"github.com/janisbent/ectf-workshop/store"
	"github.com/janisbent/ectf-workshop/tree"
	"github.com/janisbent/ectf-workshop/wire"
)

// ErrNoSubscription means the decoder holds no subscription for the
// frame's channel. Benign: not every broadcast channel is subscribed.
var ErrNoSubscription = errors.New("decode: no subscription for channel")

// ErrBadSignature means the outer signature failed to verify. Benign:
// this occurs naturally on line noise, not just tampering.
var ErrBadSignature = errors.New("decode: signature verification failed")

// ErrNonMonotonic means the frame's timestamp did not strictly advance
// past the last accepted frame. Benign: reordering/replay on a broadcast
// medium is expected, not evidence of tampering by itself.
var ErrNonMonotonic = errors.New("decode: timestamp did not advance")

// ErrOutOfRange wraps tree.ErrOutOfRange for callers that only import
// this package.
var ErrOutOfRange = tree.ErrOutOfRange

// Decoder owns the process-wide monotonicity cursor; nothing else reads
// or writes it.
type Decoder struct {
	Store   *store.Store
	Secrets board.Secrets
	Pool    *entropy.Pool
	Lockout *lockout.Lockout

	receivedFirstFrame bool
	currentTimestamp   uint64
}

func New(st *store.Store, secrets board.Secrets, pool *entropy.Pool, lo *lockout.Lockout) *Decoder {
	return &Decoder{Store: st, Secrets: secrets, Pool: pool, Lockout: lo}
}

// Decode runs the full pipeline for one frame packet, returning the
// decoded plaintext frame on success.
func (d *Decoder) Decode(p *wire.FramePacket) ([]byte, error) {
	sub, err := d.Store.FindByChannel(p.Channel)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}

	ok := crypto.VerifySignature(d.Secrets.EncoderPublicKey, p.Payload(), p.Signature)
	delay.SmallDelay(d.Pool)
	if !ok {
		return nil, ErrBadSignature
	}

	middlePlain, err := crypto.DecryptAuthenticated(sub.Kch, p.OuterCiphertext[:])
	delay.SmallDelay(d.Pool)
	var outerFailed fault.Flag
	outerFailed.Set(err != nil)
	if fault.MustBlock(&outerFailed) {
		d.Lockout.Attack()
		return nil, lockout.ErrAbandoned
	}

	middle, err := wire.UnmarshalMiddlePlaintext(middlePlain)
	if err != nil {
		return nil, err
	}

	var stale fault.Flag
	stale.Set(d.receivedFirstFrame && middle.Timestamp <= d.currentTimestamp)
	if fault.MustBlock(&stale) {
		return nil, ErrNonMonotonic
	}

	idx, vertex, err := tree.KeyIndexForTime(coverOf(sub), middle.Timestamp)
	if err != nil {
		return nil, err
	}

	kt, err := tree.DeriveTreeKey(middle.Timestamp, sub.KTree[idx], vertex, d.Secrets)
	if err != nil {
		return nil, err
	}

	innerPlain, err := crypto.DecryptAuthenticated(kt, middle.InnerCiphertext[:])
	delay.SmallDelay(d.Pool)
	var innerFailed fault.Flag
	innerFailed.Set(err != nil)
	if fault.MustBlock(&innerFailed) {
		d.Lockout.Attack()
		return nil, lockout.ErrAbandoned
	}

	inner, err := wire.UnmarshalInnerPlaintext(innerPlain)
	if err != nil {
		return nil, err
	}

	var tooLong fault.Flag
	tooLong.Set(inner.Length > wire.MaxFrameLength)

	if fault.MustBlock(&tooLong) {
		d.Lockout.Attack()
		return nil, lockout.ErrAbandoned
	}

	d.receivedFirstFrame = true
	d.currentTimestamp = middle.Timestamp

	return inner.Frame[:inner.Length], nil
}

func coverOf(sub *store.Subscription) tree.Cover {
	return tree.Cover{
		Start:    sub.Start,
		End:      sub.End,
		KeyCount: int(sub.KeyCount),
		NodeKey:  func(i int) [16]byte { return sub.KTree[i] },
	}
}
