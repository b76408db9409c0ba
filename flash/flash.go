// Package flash models the decoder's persistent storage as a fixed array
// of addressable, page-erase-then-write cells, with readers obtaining an
// immutable snapshot on each access. Backend is an interface rather than
// raw unsafe pointer access because exercising a power cut mid-write is
// part of this package's test surface, and an unsafe pointer into physical
// memory cannot simulate that.
package flash

import "errors"

// PageSize is the fixed erase-page size: large enough that one
// subscription record (2080 bytes) fits with room to spare, so each record
// is rewritten by one page-erase + page-write cycle.
const PageSize = 8192

// ErrWriteFailed indicates the underlying primitive reported a status
// other than OK. This is an assertion failure, not a recoverable error —
// callers route it to halt.CatchFire.
var ErrWriteFailed = errors.New("flash: write primitive failed")

// Backend is a page-addressable, erase-then-write persistent store.
// WritePage erases the page and then writes data in order from its first
// byte; an interruption mid-write leaves the page erased or holding only a
// leading part of data. Callers that need a page to be either wholly old or
// wholly new place a validity marker near the end of their data (the
// subscription store's magic word) so a torn write reads back invalid.
type Backend interface {
	// Pages reports how many addressable pages the backend holds.
	Pages() int

	// ReadPage returns a copy of page i's current contents.
	ReadPage(i int) ([PageSize]byte, error)

	// WritePage erases page i and writes data to it.
	WritePage(i int, data [PageSize]byte) error
}

// Address returns the byte address of page i: base + i*PageSize.
func Address(base uint32, i int) uint32 {
	return base + uint32(i)*PageSize
}
