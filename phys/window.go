package phys

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Window is the mapping through which physical memory is read and written.
type Window interface {
	// Contains reports whether every byte of [addr, addr+size) can be reached
	// through the window.
	Contains(addr PhysAddr, size uint64) bool
	// Pointer returns a pointer to size bytes at addr. It panics if the range
	// cannot be reached through the window.
	Pointer(addr PhysAddr, size uintptr) unsafe.Pointer
}

// Ptr interprets addr as the location of a T. The caller must own the memory
// exclusively for as long as the pointer is used, and T must not contain Go
// pointers.
func Ptr[T any](w Window, addr PhysAddr) *T {
	var zero T
	return (*T)(w.Pointer(addr, unsafe.Sizeof(zero)))
}

// Read copies the T stored at addr.
func Read[T any](w Window, addr PhysAddr) T {
	return *Ptr[T](w, addr)
}

// Write stores value at addr.
func Write[T any](w Window, addr PhysAddr, value T) {
	*Ptr[T](w, addr) = value
}

// Identity is the window used on the board itself: the MMU is off or identity
// maps RAM, so a physical address is directly a pointer.
type Identity struct{}

var _ Window = Identity{}

func (Identity) Contains(addr PhysAddr, size uint64) bool {
	return uint64(addr)+size <= MemorySize
}

func (w Identity) Pointer(addr PhysAddr, size uintptr) unsafe.Pointer {
	if !w.Contains(addr, uint64(size)) {
		panic(outOfWindow(addr, uint64(size)))
	}
	return unsafe.Pointer(uintptr(addr))
}

func outOfWindow(addr PhysAddr, size uint64) error {
	return errors.AssertionFailedf("range [%s, %#x) is not reachable through this window", addr, uint64(addr)+size)
}
