package phys

import (
	"unsafe"

	"github.com/dolthub/swiss"
)

type page [PageSize]byte

// SparseArena is a window that materialises zeroed pages on first touch. It can
// cover all of RAM while only paying for the pages the allocator writes
// headers into. Accesses must not straddle a page boundary.
type SparseArena struct {
	start, end PhysAddr
	pages      *swiss.Map[uint64, *page]
}

var _ Window = &SparseArena{}

// NewSparseArena creates a sparse window over [start, end).
func NewSparseArena(start, end PhysAddr) *SparseArena {
	return &SparseArena{
		start: start,
		end:   end,
		pages: swiss.NewMap[uint64, *page](64),
	}
}

func (a *SparseArena) Contains(addr PhysAddr, size uint64) bool {
	return addr >= a.start && uint64(addr)+size <= uint64(a.end)
}

func (a *SparseArena) Pointer(addr PhysAddr, size uintptr) unsafe.Pointer {
	if !a.Contains(addr, uint64(size)) {
		panic(outOfWindow(addr, uint64(size)))
	}
	offset := uint64(addr) & (PageSize - 1)
	if offset+uint64(size) > PageSize {
		panic(outOfWindow(addr, uint64(size)))
	}

	number := addr.PageNumber()
	p, ok := a.pages.Get(number)
	if !ok {
		p = new(page)
		a.pages.Put(number, p)
	}

	return unsafe.Pointer(&p[offset])
}

// ResidentPages returns how many pages have been touched.
func (a *SparseArena) ResidentPages() int {
	return a.pages.Count()
}
