// Package board holds the per-build secrets and identifiers a decoder is
// flashed with: its own ID, the encoder's public key, this device's ID
// key, and the two fixed tree-derivation keys. On real hardware these are
// linker-patched constants, the same role a per-board constants package
// plays for pin and clock configuration — a struct of build-time constants, never parsed at
// runtime.
package board

// Secrets carries the build-time constants a decoder is flashed with.
type Secrets struct {
	// DecoderID identifies this physical decoder to the encoder.
	DecoderID uint32

	// EncoderPublicKey verifies signatures over frames and subscription
	// updates.
	EncoderPublicKey [32]byte

	// IDKey decrypts subscription updates addressed to this decoder.
	IDKey [32]byte

	// LeftTreeKey and RightTreeKey parameterize kdf_child during
	// key-tree derivation.
	LeftTreeKey  [32]byte
	RightTreeKey [32]byte
}

// Side selects which of the two fixed tree keys kdf_child mixes in.
type Side int

const (
	Left Side = iota
	Right
)

// Key returns the side key for s.
func (s Secrets) Key(side Side) [32]byte {
	if side == Left {
		return s.LeftTreeKey
	}
	return s.RightTreeKey
}
