// Package transport implements the host-link framed request/response
// protocol: a 4-byte header (magic, type, little-endian length), an ACK
// handshake for non-debug messages, and 256-byte chunked body transfer
// with a per-chunk ACK. The underlying byte pipe (UART) is supplied as an
// io.ReadWriter; this package only implements the framing state machine
// on top of it.
package transport

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	Magic byte = 0x25

	TypeDecode    byte = 'D'
	TypeSubscribe byte = 'S'
	TypeList      byte = 'L'
	TypeAck       byte = 'A'
	TypeError     byte = 'E'
	TypeDebug     byte = 'G'

	chunkSize = 256

	headerSize = 4
)

var errShortRead = errors.New("transport: short read on byte pipe")

// Transport frames requests and responses over rw.
type Transport struct {
	rw io.ReadWriter
}

func New(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

func (t *Transport) readByte() (byte, error) {
	var b [1]byte
	n, err := t.rw.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, errShortRead
	}
	return b[0], nil
}

func (t *Transport) readFull(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := t.rw.Read(buf[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

func (t *Transport) writeFull(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := t.rw.Write(buf[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// resync discards bytes until it sees the magic byte, so a garbled header
// never permanently wedges the link.
func (t *Transport) resync() error {
	for {
		b, err := t.readByte()
		if err != nil {
			return err
		}
		if b == Magic {
			return nil
		}
	}
}

func (t *Transport) readHeader() (msgType byte, length uint16, err error) {
	if err = t.resync(); err != nil {
		return 0, 0, err
	}

	var rest [3]byte
	if err = t.readFull(rest[:]); err != nil {
		return 0, 0, err
	}

	msgType = rest[0]
	length = binary.LittleEndian.Uint16(rest[1:3])
	return msgType, length, nil
}

func (t *Transport) writeHeader(msgType byte, length uint16) error {
	var header [headerSize]byte
	header[0] = Magic
	header[1] = msgType
	binary.LittleEndian.PutUint16(header[2:], length)
	return t.writeFull(header[:])
}

func (t *Transport) sendAck() error {
	return t.writeHeader(TypeAck, 0)
}

func (t *Transport) awaitAck() error {
	msgType, _, err := t.readHeader()
	if err != nil {
		return err
	}
	if msgType != TypeAck {
		return errors.New("transport: expected ACK header")
	}
	return nil
}

// ReadRequest blocks for the next well-formed request and returns its
// type byte and body. Debug messages (TypeDebug) skip the ACK handshake
// entirely, per the protocol.
func (t *Transport) ReadRequest() (msgType byte, body []byte, err error) {
	msgType, length, err := t.readHeader()
	if err != nil {
		return 0, nil, err
	}

	if msgType != TypeDebug {
		if err := t.sendAck(); err != nil {
			return 0, nil, err
		}
	}

	body = make([]byte, length)
	off := 0
	for off < int(length) {
		n := chunkSize
		if remaining := int(length) - off; remaining < n {
			n = remaining
		}
		if err := t.readFull(body[off : off+n]); err != nil {
			return 0, nil, err
		}
		off += n
		if msgType != TypeDebug {
			if err := t.sendAck(); err != nil {
				return 0, nil, err
			}
		}
	}

	return msgType, body, nil
}

// WriteResponse sends a framed response with msgType and body, performing
// the same ACK handshake and chunking as ReadRequest.
func (t *Transport) WriteResponse(msgType byte, body []byte) error {
	if err := t.writeHeader(msgType, uint16(len(body))); err != nil {
		return err
	}

	if msgType != TypeDebug {
		if err := t.awaitAck(); err != nil {
			return err
		}
	}

	off := 0
	for off < len(body) {
		n := chunkSize
		if remaining := len(body) - off; remaining < n {
			n = remaining
		}
		if err := t.writeFull(body[off : off+n]); err != nil {
			return err
		}
		off += n
		if msgType != TypeDebug {
			if err := t.awaitAck(); err != nil {
				return err
			}
		}
	}

	return nil
}
