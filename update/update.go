// Package update implements the subscription update pipeline: verify the
// outer signature, decrypt under this decoder's ID key, and hand the
// result to the subscription store's validation and persistence policy.
package update

import (
	"errors"

	"github.com/janisbent/ectf-workshop/board"
	"github.com/janisbent/ectf-workshop/crypto"
	"github.com/janisbent/ectf-workshop/delay"
	"github.com/janisbent/ectf-workshop/entropy"
	"github.com/janisbent/ectf-workshop/fault"
	"github.com/janisbent/ectf-workshop/lockout"
	"github.com/janisbent/ectf-workshop/store"
	"github.com/janisbent/ectf-workshop/wire"
)

// Updater applies subscription updates to a store.
type Updater struct {
	Store   *store.Store
	Secrets board.Secrets
	Pool    *entropy.Pool
	Lockout *lockout.Lockout
}

func New(st *store.Store, secrets board.Secrets, pool *entropy.Pool, lo *lockout.Lockout) *Updater {
	return &Updater{Store: st, Secrets: secrets, Pool: pool, Lockout: lo}
}

// Update runs the full pipeline for one update packet. A lockout.ErrAbandoned
// return means the request must get no response at all, not even an error
// response: the caller must not treat it as an ordinary failure.
func (u *Updater) Update(p *wire.UpdatePacket) error {
	ok := crypto.VerifySignature(u.Secrets.EncoderPublicKey, p.Payload(), p.Signature)
	delay.SmallDelay(u.Pool)
	if !ok {
		// Unlike frame signatures, an update is addressed to this
		// specific decoder: a bad signature here implies tampering,
		// not line noise.
		u.Lockout.Attack()
		return lockout.ErrAbandoned
	}

	plain, err := crypto.DecryptAuthenticated(u.Secrets.IDKey, p.Ciphertext[:])
	delay.SmallDelay(u.Pool)
	var decryptFailed fault.Flag
	decryptFailed.Set(err != nil)
	if fault.MustBlock(&decryptFailed) {
		u.Lockout.Attack()
		return lockout.ErrAbandoned
	}

	sub, err := store.Unmarshal(plain)
	if err != nil {
		return err
	}

	err = u.Store.Update(sub)

	var attackErr *store.AttackError
	if errors.As(err, &attackErr) {
		u.Lockout.Attack()
		return lockout.ErrAbandoned
	}

	return err
}
