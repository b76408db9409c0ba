// Package wire encodes and decodes the fixed-size packet layouts carried
// over the host transport and inside encrypted payloads: frame packets,
// update packets, and list responses.
package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// FramePacketSize is channel(4) + outer_ciphertext(160) + sig(64).
	FramePacketSize = 4 + 160 + 64

	// UpdatePacketSize is decoder_id(4) + ciphertext(2120) + sig(64).
	UpdatePacketSize = 4 + 2120 + 64

	// MiddlePlaintextSize is timestamp(8) + inner_ciphertext(108) + pad(4),
	// the plaintext recovered from a frame's outer decryption.
	MiddlePlaintextSize = 8 + 108 + 4

	// InnerPlaintextSize is length(4) + frame_bytes(64).
	InnerPlaintextSize = 4 + 64

	// MaxFrameLength is the largest legal decoded frame length.
	MaxFrameLength = 64
)

var errShort = errors.New("wire: buffer too short")

// FramePacket is the host-submitted decode request.
type FramePacket struct {
	Channel         uint32
	OuterCiphertext [160]byte
	Signature       [64]byte
}

// Payload returns the bytes the outer signature is computed over: channel
// followed by the outer ciphertext, matching what the encoder signs.
func (p *FramePacket) Payload() []byte {
	buf := make([]byte, 4+160)
	binary.LittleEndian.PutUint32(buf, p.Channel)
	copy(buf[4:], p.OuterCiphertext[:])
	return buf
}

// UnmarshalFramePacket decodes a FramePacketSize-byte request.
func UnmarshalFramePacket(b []byte) (*FramePacket, error) {
	if len(b) < FramePacketSize {
		return nil, errShort
	}
	p := &FramePacket{}
	p.Channel = binary.LittleEndian.Uint32(b)
	copy(p.OuterCiphertext[:], b[4:4+160])
	copy(p.Signature[:], b[4+160:4+160+64])
	return p, nil
}

// MiddlePlaintext is the frame's outer-decrypted layer.
type MiddlePlaintext struct {
	Timestamp       uint64
	InnerCiphertext [108]byte
}

// UnmarshalMiddlePlaintext decodes the outer-decrypted plaintext.
func UnmarshalMiddlePlaintext(b []byte) (*MiddlePlaintext, error) {
	if len(b) < MiddlePlaintextSize {
		return nil, errShort
	}
	m := &MiddlePlaintext{}
	m.Timestamp = binary.LittleEndian.Uint64(b)
	copy(m.InnerCiphertext[:], b[8:8+108])
	return m, nil
}

// InnerPlaintext is the frame's fully-decrypted payload.
type InnerPlaintext struct {
	Length uint32
	Frame  [64]byte
}

// UnmarshalInnerPlaintext decodes the inner-decrypted plaintext.
func UnmarshalInnerPlaintext(b []byte) (*InnerPlaintext, error) {
	if len(b) < InnerPlaintextSize {
		return nil, errShort
	}
	ip := &InnerPlaintext{}
	ip.Length = binary.LittleEndian.Uint32(b)
	copy(ip.Frame[:], b[4:4+64])
	return ip, nil
}

// UpdatePacket is the host-submitted subscription update request.
type UpdatePacket struct {
	DecoderID  uint32
	Ciphertext [2120]byte
	Signature  [64]byte
}

// Payload returns the bytes the signature is computed over: decoder_id
// followed by the ciphertext.
func (p *UpdatePacket) Payload() []byte {
	buf := make([]byte, 4+2120)
	binary.LittleEndian.PutUint32(buf, p.DecoderID)
	copy(buf[4:], p.Ciphertext[:])
	return buf
}

// UnmarshalUpdatePacket decodes an UpdatePacketSize-byte request.
func UnmarshalUpdatePacket(b []byte) (*UpdatePacket, error) {
	if len(b) < UpdatePacketSize {
		return nil, errShort
	}
	p := &UpdatePacket{}
	p.DecoderID = binary.LittleEndian.Uint32(b)
	copy(p.Ciphertext[:], b[4:4+2120])
	copy(p.Signature[:], b[4+2120:4+2120+64])
	return p, nil
}

// ChannelInfo is one entry of a list response.
type ChannelInfo struct {
	Channel uint32
	Start   uint64
	End     uint64
}

// MarshalList encodes a list response: n followed by n ChannelInfo
// entries, 20 bytes each.
func MarshalList(entries []ChannelInfo) []byte {
	out := make([]byte, 4+20*len(entries))
	binary.LittleEndian.PutUint32(out, uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint32(out[off:], e.Channel)
		binary.LittleEndian.PutUint64(out[off+4:], e.Start)
		binary.LittleEndian.PutUint64(out[off+12:], e.End)
		off += 20
	}
	return out
}
