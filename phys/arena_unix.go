//go:build unix

package phys

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapArena is a window backed by an anonymous mapping outside the Go heap.
// The kernel only commits pages that are touched, so it can stand in for the
// whole of RAM on a development host.
type MmapArena struct {
	base PhysAddr
	data []byte
}

var _ Window = &MmapArena{}

// NewMmapArena maps size bytes to stand in for [base, base+size). base and size
// must be page aligned.
func NewMmapArena(base PhysAddr, size uint64) (*MmapArena, error) {
	if !base.IsAligned(PageSize) || size%PageSize != 0 || size == 0 {
		return nil, errors.Newf("arena [%s, +%#x) is not a page aligned range", base, size)
	}
	if _, err := TryFromRaw(uint64(base) + size); err != nil {
		return nil, err
	}

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE|unix.MAP_NORESERVE)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %#x bytes", size)
	}

	return &MmapArena{base: base, data: data}, nil
}

func (a *MmapArena) Contains(addr PhysAddr, size uint64) bool {
	return a.data != nil && addr >= a.base && uint64(addr)+size <= uint64(a.base)+uint64(len(a.data))
}

func (a *MmapArena) Pointer(addr PhysAddr, size uintptr) unsafe.Pointer {
	if !a.Contains(addr, uint64(size)) {
		panic(outOfWindow(addr, uint64(size)))
	}
	return unsafe.Pointer(&a.data[addr-a.base])
}

// Close unmaps the arena. Pointers obtained from it must not be used afterwards.
func (a *MmapArena) Close() error {
	if a.data == nil {
		return nil
	}
	err := unix.Munmap(a.data)
	a.data = nil
	return errors.Wrap(err, "unmapping arena")
}
