package flash

import "fmt"

// Sim is an in-memory Backend for tests and portable (non tamago,arm)
// builds. PowerCutAfter lets a test simulate a power cut at a specific
// byte offset into a WritePage call: bytes before the cut are applied to
// the page, bytes at and after it are dropped, reproducing a torn write
// for every offset a test wants to probe.
type Sim struct {
	pages [][PageSize]byte

	cutPage   int
	cutOffset int
	armed     bool
}

// NewSim returns a Sim backend with n pages, all zeroed (magic-invalid).
func NewSim(n int) *Sim {
	return &Sim{pages: make([][PageSize]byte, n)}
}

// PowerCutAfter arms a one-shot power cut: the next WritePage to page i
// applies only the first offset bytes of data before "losing power".
func (s *Sim) PowerCutAfter(i int, offset int) {
	s.cutPage = i
	s.cutOffset = offset
	s.armed = true
}

func (s *Sim) Pages() int {
	return len(s.pages)
}

func (s *Sim) ReadPage(i int) ([PageSize]byte, error) {
	if i < 0 || i >= len(s.pages) {
		return [PageSize]byte{}, fmt.Errorf("flash: page %d out of range", i)
	}
	return s.pages[i], nil
}

func (s *Sim) WritePage(i int, data [PageSize]byte) error {
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("flash: page %d out of range", i)
	}

	// erase
	s.pages[i] = [PageSize]byte{}

	if s.armed && s.cutPage == i {
		s.armed = false
		copy(s.pages[i][:s.cutOffset], data[:s.cutOffset])
		return nil
	}

	s.pages[i] = data
	return nil
}
