// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// +build tamago,arm

package rng

import (
	"github.com/janisbent/ectf-workshop/internal/reg"
)

// RNGB registers, adapted from the NXP RNGB driver
// (soc/imx6/rngb/rngb.go p3105, 44.5.2 Automatic seeding, IMX6ULLRM).
const (
	rngBase = 0x02284000

	rngCmd   = rngBase + 0x04
	rngCmdSR = 6
	rngCmdCE = 5
	rngCmdGS = 1
	rngCmdST = 0

	rngCr   = rngBase + 0x08
	rngCrAR = 4

	rngSr        = rngBase + 0x0c
	rngSrStPF    = 21
	rngSrErr     = 16
	rngSrFifoLvl = 8
	rngSrSdn     = 5
	rngSrStdn    = 4

	rngOut = rngBase + 0x14
)

// HWSource reads raw 32-bit words from the i.MX6ULL/ULZ RNGB block.
type HWSource struct{}

// Init performs RNGB self-test and automatic seeding. It must be called
// once before the first ReadWord.
func (HWSource) Init() {
	reg.Set(rngCmd, rngCmdCE)
	reg.Set(rngCmd, rngCmdSR)
	reg.Set(rngCmd, rngCmdST)

	reg.Wait(rngSr, rngSrStdn, 1, 1)

	if reg.Get(rngSr, rngSrErr, 1) != 0 || reg.Get(rngSr, rngSrStPF, 1) != 0 {
		panic("rng: RNGB self-test failure")
	}

	reg.Set(rngCr, rngCrAR)
	reg.Set(rngCmd, rngCmdGS)

	reg.Wait(rngSr, rngSrSdn, 1, 1)
}

// ReadWord blocks until the RNGB output FIFO holds a word and returns it.
func (HWSource) ReadWord() uint32 {
	for {
		if reg.Get(rngSr, rngSrErr, 1) != 0 {
			panic("rng: RNGB error")
		}

		if reg.Get(rngSr, rngSrFifoLvl, 0b1111) > 0 {
			return reg.Read(rngOut)
		}
	}
}
