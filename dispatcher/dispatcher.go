// Package dispatcher implements the decoder's top-level request loop:
// boot-time MPU and lockout setup, then per-request entropy refill,
// timing desynchronization, and dispatch by message-type byte.
package dispatcher

import (
	"errors"

	"github.com/janisbent/ectf-workshop/decode"
	"github.com/janisbent/ectf-workshop/delay"
	"github.com/janisbent/ectf-workshop/entropy"
	"github.com/janisbent/ectf-workshop/list"
	"github.com/janisbent/ectf-workshop/lockout"
	"github.com/janisbent/ectf-workshop/mpu"
	"github.com/janisbent/ectf-workshop/rng"
	"github.com/janisbent/ectf-workshop/store"
	"github.com/janisbent/ectf-workshop/transport"
	"github.com/janisbent/ectf-workshop/update"
	"github.com/janisbent/ectf-workshop/wire"
)

// Dispatcher owns the one-request-at-a-time loop. Scheduling is strictly
// sequential: one request, including any lockout it triggers, runs to
// completion before the next header is read.
type Dispatcher struct {
	Transport *transport.Transport
	Decoder   *decode.Decoder
	Updater   *update.Updater
	Store     *store.Store
	Lockout   *lockout.Lockout
	Pool      *entropy.Pool
	RNG       rng.Source
	Layout    mpu.Layout
}

// New wires a Dispatcher from its already-constructed collaborators.
func New(t *transport.Transport, d *decode.Decoder, u *update.Updater, st *store.Store, lo *lockout.Lockout, pool *entropy.Pool, src rng.Source, layout mpu.Layout) *Dispatcher {
	return &Dispatcher{
		Transport: t,
		Decoder:   d,
		Updater:   u,
		Store:     st,
		Lockout:   lo,
		Pool:      pool,
		RNG:       src,
		Layout:    layout,
	}
}

// Boot programs the MPU region layout and drains any lockout counter left
// over from a prior power cycle, before the first request is ever read.
func (d *Dispatcher) Boot() error {
	if err := mpu.Init(d.Layout); err != nil {
		return err
	}
	d.Lockout.Process()
	return nil
}

// Run services requests until the transport reports an error, which on a
// byte-framed link normally means the underlying pipe closed.
func (d *Dispatcher) Run() error {
	for {
		if err := d.Step(); err != nil {
			return err
		}
	}
}

// Step handles exactly one request: refill the entropy pool if it ran
// dry, read one framed request, apply a large random delay decoupling
// dispatch timing from the request's arrival, then dispatch by type.
func (d *Dispatcher) Step() error {
	if d.Pool.NeedsRefill() {
		if err := d.Pool.Refill(d.RNG); err != nil {
			return err
		}
	}

	msgType, body, err := d.Transport.ReadRequest()
	if err != nil {
		return err
	}

	delay.LargeDelay(d.RNG)

	switch msgType {
	case transport.TypeList:
		return d.handleList()
	case transport.TypeDecode:
		return d.handleDecode(body)
	case transport.TypeSubscribe:
		return d.handleSubscribe(body)
	default:
		return d.Transport.WriteResponse(transport.TypeError, []byte("dispatcher: unknown message type"))
	}
}

func (d *Dispatcher) handleList() error {
	resp, err := list.Build(d.Store)
	if err != nil {
		return d.Transport.WriteResponse(transport.TypeError, []byte(err.Error()))
	}
	return d.Transport.WriteResponse(transport.TypeList, resp)
}

func (d *Dispatcher) handleDecode(body []byte) error {
	p, err := wire.UnmarshalFramePacket(body)
	if err != nil {
		return d.Transport.WriteResponse(transport.TypeError, []byte(err.Error()))
	}

	frame, err := d.Decoder.Decode(p)
	if errors.Is(err, lockout.ErrAbandoned) {
		return nil
	}
	if err != nil {
		return d.Transport.WriteResponse(transport.TypeError, []byte(err.Error()))
	}

	return d.Transport.WriteResponse(transport.TypeDecode, frame)
}

func (d *Dispatcher) handleSubscribe(body []byte) error {
	p, err := wire.UnmarshalUpdatePacket(body)
	if err != nil {
		return d.Transport.WriteResponse(transport.TypeError, []byte(err.Error()))
	}

	err = d.Updater.Update(p)
	if errors.Is(err, lockout.ErrAbandoned) {
		return nil
	}
	if err != nil {
		return d.Transport.WriteResponse(transport.TypeError, []byte(err.Error()))
	}

	return d.Transport.WriteResponse(transport.TypeSubscribe, nil)
}
