// +build tamago,arm

package flash

import (
	"github.com/janisbent/ectf-workshop/internal/reg"
)

// NOR is a memory-mapped NOR flash backend: Base is the physical address
// of page 0, and each page is erased (every word set to 0xffffffff) and
// then written word by word through plain memory-mapped stores; no
// command/status handshake with a controller is performed. Actual flash-controller bring-up
// (WEIM/EIM timing, chip-select muxing) is an external collaborator; this
// type only assumes a controller that exposes erase-then-write at page
// granularity through memory-mapped registers.
type NOR struct {
	// Base is the physical address of page 0.
	Base uint32
	// Count is the number of pages the backend exposes.
	Count int
}

func (n *NOR) Pages() int {
	return n.Count
}

func (n *NOR) ReadPage(i int) (page [PageSize]byte, err error) {
	addr := Address(n.Base, i)

	for off := 0; off < PageSize; off += 4 {
		w := reg.Read(addr + uint32(off))
		page[off] = byte(w)
		page[off+1] = byte(w >> 8)
		page[off+2] = byte(w >> 16)
		page[off+3] = byte(w >> 24)
	}

	return
}

func (n *NOR) WritePage(i int, data [PageSize]byte) error {
	addr := Address(n.Base, i)

	if err := n.erase(addr); err != nil {
		return err
	}

	for off := 0; off < PageSize; off += 4 {
		w := uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
		reg.Write(addr+uint32(off), w)
	}

	return nil
}

func (n *NOR) erase(addr uint32) error {
	for off := 0; off < PageSize; off += 4 {
		reg.Write(addr+uint32(off), 0xffffffff)
	}
	return nil
}
