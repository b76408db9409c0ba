// +build tamago,arm

package mpu

import (
	"errors"

	"github.com/janisbent/ectf-workshop/bits"
	"github.com/janisbent/ectf-workshop/internal/reg"
)

// TZASC register offsets: this decoder only ever programs a fixed
// four-region layout, so the generic region-index API collapses to one
// Init call instead of a reusable per-region type.
const (
	tzascConf             = 0x000
	confRegions           = 0
	tzascRegionSetupLow0  = 0x100
	tzascRegionSetupHigh0 = 0x104
	tzascRegionAttrs0     = 0x108
	regionAttrsSP         = 28
	regionAttrsSize       = 1
	regionAttrsEn         = 0

	sizeMin = 0b001110
	sizeMax = 0b111111
)

// Base is the TZASC controller's register base address on this SoC.
var Base uint32

func regions() int {
	return int(reg.Get(Base+tzascConf, confRegions, 0xf)) + 1
}

func enableRegion(n int, r Region) error {
	if n < 0 || n+1 > regions() {
		return errors.New("mpu: invalid region index")
	}

	if r.Base%(1<<15) != 0 {
		return errors.New("mpu: incompatible region start address")
	}

	var size uint32
	for i := uint32(sizeMin); i <= sizeMax; i++ {
		if r.Size == 1<<(i+1) {
			size = i
			break
		}
	}
	if size == 0 {
		return errors.New("mpu: incompatible region size")
	}

	var attrs uint32
	bits.SetN(&attrs, regionAttrsSP, 0b1111, uint32(r.Permissions))
	bits.SetN(&attrs, regionAttrsSize, 0b111111, size)
	bits.Set(&attrs, regionAttrsEn)

	off := uint32(0x10 * n)
	reg.Write(Base+tzascRegionSetupLow0+off, r.Base&0xffff8000)
	reg.Write(Base+tzascRegionSetupHigh0+off, 0)
	reg.Write(Base+tzascRegionAttrs0+off, attrs)

	return nil
}

// Init programs the fixed four-region layout into the controller.
func Init(layout Layout) error {
	if Base == 0 {
		return errors.New("mpu: Base not configured")
	}

	regionsInOrder := []Region{layout.Flash, layout.SRAM, layout.BootHelper, layout.Peripheral}
	for i, r := range regionsInOrder {
		if err := enableRegion(i, r); err != nil {
			return err
		}
	}

	return nil
}
