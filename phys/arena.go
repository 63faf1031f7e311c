package phys

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Arena is a window backed by ordinary Go memory. It stands in for RAM when the
// allocator runs on a development host.
type Arena struct {
	base PhysAddr
	data []byte
}

var _ Window = &Arena{}

// NewArena creates an arena covering [base, base+size). base must be page aligned.
func NewArena(base PhysAddr, size uint64) (*Arena, error) {
	if !base.IsAligned(PageSize) {
		return nil, errors.Newf("arena base %s is not page aligned", base)
	}
	if _, err := TryFromRaw(uint64(base) + size); err != nil {
		return nil, err
	}

	// Over-allocate so the start can be rounded up to a page boundary,
	// keeping buffer offsets and physical addresses equally aligned.
	raw := make([]byte, size+PageSize)
	skip := (PageSize - uint64(uintptr(unsafe.Pointer(&raw[0])))%PageSize) % PageSize

	return &Arena{
		base: base,
		data: raw[skip : skip+size],
	}, nil
}

func (a *Arena) Base() PhysAddr { return a.base }

func (a *Arena) Size() uint64 { return uint64(len(a.data)) }

func (a *Arena) Contains(addr PhysAddr, size uint64) bool {
	return addr >= a.base && uint64(addr)+size <= uint64(a.base)+uint64(len(a.data))
}

func (a *Arena) Pointer(addr PhysAddr, size uintptr) unsafe.Pointer {
	if !a.Contains(addr, uint64(size)) {
		panic(outOfWindow(addr, uint64(size)))
	}
	return unsafe.Pointer(&a.data[addr-a.base])
}

// Bytes exposes [addr, addr+size) as a byte slice.
func (a *Arena) Bytes(addr PhysAddr, size uint64) []byte {
	if !a.Contains(addr, size) {
		panic(outOfWindow(addr, size))
	}
	offset := uint64(addr - a.base)
	return a.data[offset : offset+size]
}
