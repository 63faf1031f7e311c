package phys

import (
	"fmt"
	"math/bits"

	"github.com/bareboard/pmem/memutils"
	"github.com/cockroachdb/errors"
	pkgerrors "github.com/pkg/errors"
)

// ErrOutOfRange is returned when an address falls outside installed physical memory
var ErrOutOfRange = pkgerrors.New("address outside physical memory")

// PhysAddr is an address in physical memory. Values are always in the range
// [0, MemorySize]; MemorySize itself is representable because it is the
// exclusive end of the usable range.
type PhysAddr uint64

// KernelAddr is the high-half alias of a physical address. It is only produced
// from a PhysAddr with Kernel and turned back into one with Phys.
type KernelAddr uint64

// TryFromRaw validates raw as a physical address.
func TryFromRaw(raw uint64) (PhysAddr, error) {
	if raw > MemorySize {
		return 0, errors.Wrapf(ErrOutOfRange, "%#x exceeds the top of memory %#x", raw, MemorySize)
	}

	return PhysAddr(raw), nil
}

// FromRaw validates raw as a physical address and panics if it lies outside
// physical memory.
func FromRaw(raw uint64) PhysAddr {
	addr, err := TryFromRaw(raw)
	if err != nil {
		panic(errors.WithAssertionFailure(err))
	}

	return addr
}

// Raw returns the underlying integer.
func (a PhysAddr) Raw() uint64 {
	return uint64(a)
}

// Add returns the address offset bytes above a. The result is validated.
func (a PhysAddr) Add(offset uint64) PhysAddr {
	return FromRaw(uint64(a) + offset)
}

// Sub returns the distance in bytes from other up to a.
func (a PhysAddr) Sub(other PhysAddr) uint64 {
	if other > a {
		panic(errors.AssertionFailedf("address %s is below %s", a, other))
	}
	return uint64(a - other)
}

func (a PhysAddr) IsAligned(alignment uint64) bool {
	return memutils.CheckAligned(uint64(a), alignment, "address") == nil
}

func (a PhysAddr) AlignDown(alignment uint64) PhysAddr {
	return PhysAddr(memutils.AlignDown(uint64(a), alignment))
}

func (a PhysAddr) AlignUp(alignment uint64) PhysAddr {
	return FromRaw(memutils.AlignUp(uint64(a), alignment))
}

// TrailingAlignment returns the largest power of two that a is aligned to.
// Address zero is aligned to everything and reports 1 << 63.
func (a PhysAddr) TrailingAlignment() uint64 {
	if a == 0 {
		return 1 << 63
	}
	return 1 << bits.TrailingZeros64(uint64(a))
}

// PageNumber returns the index of the page containing a.
func (a PhysAddr) PageNumber() uint64 {
	return uint64(a) >> PageShift
}

// Kernel returns the kernel's high-half alias of a.
func (a PhysAddr) Kernel() KernelAddr {
	return KernelAddr(uint64(a) + KernelOffset)
}

func (a PhysAddr) String() string {
	return fmt.Sprintf("%#016x", uint64(a))
}

// Phys reverses PhysAddr.Kernel and panics if k is not an alias of physical memory.
func (k KernelAddr) Phys() PhysAddr {
	if uint64(k) < KernelOffset {
		panic(errors.AssertionFailedf("%#x is not a kernel address", uint64(k)))
	}

	return FromRaw(uint64(k) - KernelOffset)
}

func (k KernelAddr) String() string {
	return fmt.Sprintf("%#016x", uint64(k))
}
