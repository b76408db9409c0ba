// Package mpu configures the decoder's memory protection regions: flash
// execute+read-only, SRAM read-write+no-execute, a small SRAM boot
// carve-out execute+read-only for self-flashing helpers, and the
// peripheral window read-write+no-execute.
package mpu

// Permission bits, mirroring a TZC-380-style security-permission encoding
// (secure/non-secure read/write), reused here as a generic read/write/
// execute set since this controller has no secure-world concept of its
// own.
const (
	PermRead = 1 << iota
	PermWrite
	PermExecute
)

// Region describes one protected memory window.
type Region struct {
	Base        uint32
	Size        uint32
	Permissions int
}

// Layout is the fixed four-region configuration: flash, general SRAM, the
// SRAM boot carve-out, and the peripheral window.
type Layout struct {
	Flash      Region
	SRAM       Region
	BootHelper Region
	Peripheral Region
}

// DefaultLayout returns the recommended layout: 512 KiB flash (X+R),
// 128 KiB SRAM (RW, NX) with an 8 KiB boot carve-out (X+R) at its base,
// and a read-write, no-execute peripheral window.
func DefaultLayout(flashBase, sramBase, peripheralBase uint32) Layout {
	const (
		flashSize      = 512 * 1024
		sramSize       = 128 * 1024
		bootHelperSize = 8 * 1024
		peripheralSize = 1 * 1024 * 1024
	)

	return Layout{
		Flash: Region{
			Base:        flashBase,
			Size:        flashSize,
			Permissions: PermRead | PermExecute,
		},
		SRAM: Region{
			Base:        sramBase + bootHelperSize,
			Size:        sramSize - bootHelperSize,
			Permissions: PermRead | PermWrite,
		},
		BootHelper: Region{
			Base:        sramBase,
			Size:        bootHelperSize,
			Permissions: PermRead | PermExecute,
		},
		Peripheral: Region{
			Base:        peripheralBase,
			Size:        peripheralSize,
			Permissions: PermRead | PermWrite,
		},
	}
}
