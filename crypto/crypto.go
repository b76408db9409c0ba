// Package crypto is the decoder's thin facade over its cryptographic
// primitives. Every exported function is a single black-box operation with
// a stated contract: authenticated symmetric decryption, EdDSA signature
// verification, and the two key-derivation steps the key-tree navigator
// walks. Callers are responsible for invoking delay.SmallDelay after each
// call so that pass/fail timing is decoupled from the next observable
// action.
package crypto

import (
	"crypto/subtle"
	"errors"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/ed25519"

	"github.com/janisbent/ectf-workshop/fault"
)

// NonceSize and MACSize are the two components of the 40-byte metadata
// prefix/suffix attached to every ciphertext.
const (
	NonceSize = 16
	MACSize   = 24
	Overhead  = NonceSize + MACSize
)

// ErrAuthFailed is returned by DecryptAuthenticated when the MAC does not
// verify. Its occurrence after a passing signature check is attack-class;
// callers, not this package, make that determination.
var ErrAuthFailed = errors.New("crypto: authentication failed")

// DecryptAuthenticated decrypts ciphertext laid out as nonce(16) ||
// payload || mac(24) under key, returning the payload. The MAC is a keyed
// BLAKE2b-192 hash over nonce||payload, compared in constant time before
// any cipher state is touched; the payload is then recovered with a
// chacha20 keystream over the 16-byte wire nonce, zero-extended to the
// 24-byte XChaCha nonce the underlying stream cipher requires (an Open
// Question resolution recorded in DESIGN.md: the wire format fixes field
// sizes but not the algorithm).
func DecryptAuthenticated(key [32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < Overhead {
		return nil, errors.New("crypto: ciphertext too short")
	}

	nonce := ciphertext[:NonceSize]
	payload := ciphertext[NonceSize : len(ciphertext)-MACSize]
	mac := ciphertext[len(ciphertext)-MACSize:]

	expected, err := keyedHash(key[:], MACSize, nonce, payload)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(expected, mac) != 1 {
		return nil, ErrAuthFailed
	}

	plaintext := make([]byte, len(payload))
	if err := streamXOR(key, nonce, payload, plaintext); err != nil {
		return nil, err
	}

	return plaintext, nil
}

// EncryptAuthenticated is DecryptAuthenticated's inverse: it lays out
// nonce(16) || ciphertext || mac(24) for the caller-supplied nonce,
// encrypting the payload first and then computing the MAC over
// nonce||ciphertext, the same bytes DecryptAuthenticated checks. Production
// decoder code never calls this (a decoder only ever decrypts), but test
// fixtures need a way to construct packets the decode and update
// pipelines will accept, and an encoder that shares this wire format
// would call it too.
func EncryptAuthenticated(key [32]byte, nonce [NonceSize]byte, payload []byte) ([]byte, error) {
	ciphertext := make([]byte, len(payload))
	if err := streamXOR(key, nonce[:], payload, ciphertext); err != nil {
		return nil, err
	}

	mac, err := keyedHash(key[:], MACSize, nonce[:], ciphertext)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, NonceSize+len(payload)+MACSize)
	out = append(out, nonce[:]...)
	out = append(out, ciphertext...)
	out = append(out, mac...)
	return out, nil
}

// VerifySignature checks an EdDSA signature over msg under pubkey. The
// boolean result is stored as a "verified" flag and read three times under
// the redundant-predicate discipline: the three reads are AND-combined
// (equivalently, the failure reads are OR-combined), so a single glitched
// read cannot admit a forged signature.
func VerifySignature(pubkey [32]byte, msg []byte, sig [64]byte) bool {
	ok := ed25519.Verify(ed25519.PublicKey(pubkey[:]), msg, sig[:])
	ok = ok && sanityCheckPoint(pubkey)

	var verified fault.Flag
	verified.Set(ok)

	return fault.MustAllow(&verified)
}

// sanityCheckPoint confirms pubkey decodes to a valid curve point, using
// filippo.io/edwards25519 directly (the same package cvsouth-tor-go uses
// for Ed25519/Curve25519 point arithmetic) as a second, independent check
// alongside ed25519.Verify's internal validation.
func sanityCheckPoint(pubkey [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(pubkey[:])
	return err == nil
}

// KDFChild computes H(parent || side) truncated to 16 bytes, deriving a
// child tree-key from its parent and the fixed LEFT_TREE_KEY/RIGHT_TREE_KEY
// side constant.
func KDFChild(parent [16]byte, side [32]byte) ([16]byte, error) {
	var child [16]byte

	h, err := blake2b.New(16, nil)
	if err != nil {
		return child, err
	}

	h.Write(parent[:])
	h.Write(side[:])
	copy(child[:], h.Sum(nil))

	return child, nil
}

// KDFLeaf expands a leaf tree-key to a 32-byte symmetric key.
func KDFLeaf(treeKey [16]byte) ([32]byte, error) {
	var sym [32]byte

	h, err := blake2b.New(32, nil)
	if err != nil {
		return sym, err
	}

	h.Write(treeKey[:])
	copy(sym[:], h.Sum(nil))

	return sym, nil
}

// KeyedHash computes a keyed BLAKE2b hash of size bytes over the
// concatenation of msgs, used by the entropy pool refill.
func KeyedHash(key []byte, size int, msgs ...[]byte) ([]byte, error) {
	return keyedHash(key, size, msgs...)
}

func keyedHash(key []byte, size int, msgs ...[]byte) ([]byte, error) {
	h, err := blake2b.New(size, key)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		h.Write(m)
	}
	return h.Sum(nil), nil
}

func streamXOR(key [32]byte, nonce16 []byte, src, dst []byte) error {
	var nonce24 [chacha20.NonceSizeX]byte
	copy(nonce24[:], nonce16)

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce24[:])
	if err != nil {
		return err
	}

	c.XORKeyStream(dst, src)
	return nil
}
