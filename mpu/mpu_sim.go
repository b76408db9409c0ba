// +build !tamago !arm

package mpu

// Init is a no-op on portable builds: there is no TZASC controller to
// program, so the dispatcher's boot sequence runs unchanged and stays
// testable off real hardware.
func Init(layout Layout) error {
	return nil
}
