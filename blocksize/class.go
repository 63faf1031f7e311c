// Package blocksize enumerates the power-of-two block sizes managed by the
// frame allocator, from a single 4KiB page up to 1GiB.
package blocksize

import (
	"fmt"

	"github.com/bareboard/pmem/memutils"
	"github.com/cockroachdb/errors"
	pkgerrors "github.com/pkg/errors"
)

// ErrOutOfRange is returned for powers of two smaller than Min or larger than Max
var ErrOutOfRange = pkgerrors.New("block size outside supported range")

// Class is a block size class. Class c holds blocks of MinBytes << c bytes.
type Class uint8

const (
	Size4K Class = iota
	Size8K
	Size16K
	Size32K
	Size64K
	Size128K
	Size256K
	Size512K
	Size1M
	Size2M
	Size4M
	Size8M
	Size16M
	Size32M
	Size64M
	Size128M
	Size256M
	Size512M
	Size1G

	Min = Size4K
	// Max is large enough that contiguous physical memory never needs a bigger block.
	Max = Size1G
)

const (
	// Count is the number of size classes
	Count = int(Max) + 1

	// MinShift is log2(MinBytes)
	MinShift = 12

	MinBytes uint64 = 1 << MinShift
	MaxBytes uint64 = MinBytes << Max
)

func (c Class) Valid() bool {
	return c <= Max
}

// Bytes returns the size in bytes of blocks in class c.
func (c Class) Bytes() uint64 {
	return Exp2(c)
}

// Shift returns log2(c.Bytes()).
func (c Class) Shift() uint {
	return uint(c) + MinShift
}

// Next returns the class twice the size of c. It panics for Max.
func (c Class) Next() Class {
	if c >= Max {
		panic(errors.AssertionFailedf("no class is larger than %s", c))
	}
	return c + 1
}

// Prev returns the class half the size of c. It panics for Min.
func (c Class) Prev() Class {
	if c == Min || !c.Valid() {
		panic(errors.AssertionFailedf("no class is smaller than %s", c))
	}
	return c - 1
}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", uint8(c))
	}

	bytes := c.Bytes()
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%dGiB", bytes>>30)
	case bytes >= 1<<20:
		return fmt.Sprintf("%dMiB", bytes>>20)
	default:
		return fmt.Sprintf("%dKiB", bytes>>10)
	}
}

// Exp2 returns the byte size of class c.
func Exp2(c Class) uint64 {
	return MinBytes << c
}

// Log2 returns log2(bytes) for a power of two.
func Log2(bytes uint64) uint {
	return memutils.Log2(bytes)
}

// FromBytes returns the class of blocks that are exactly bytes long.
func FromBytes(bytes uint64) (Class, error) {
	if err := memutils.CheckPow2(bytes, "block size"); err != nil {
		return 0, err
	}
	if bytes < MinBytes || bytes > MaxBytes {
		return 0, errors.Wrapf(ErrOutOfRange, "block size is %#x, must be between %#x and %#x", bytes, MinBytes, MaxBytes)
	}

	return Class(Log2(bytes) - MinShift), nil
}

// MustFromBytes is FromBytes for callers whose size argument is a contract:
// an unsupported size panics with an assertion failure.
func MustFromBytes(bytes uint64) Class {
	c, err := FromBytes(bytes)
	if err != nil {
		panic(errors.WithAssertionFailure(err))
	}
	return c
}

// LargestFor returns the largest class whose blocks are no larger than
// alignment and no larger than remaining, capped at Max. It returns false
// if not even a Min block fits.
func LargestFor(alignment, remaining uint64) (Class, bool) {
	memutils.DebugCheckPow2(alignment, "alignment")

	limit := min(alignment, remaining, MaxBytes)
	if limit < MinBytes {
		return 0, false
	}

	return Class(Log2(limit) - MinShift), true
}

// FromSizeAlign returns the smallest class whose blocks can hold size bytes
// at the requested alignment. A block is aligned to its own size, so this is
// max(size, align) rounded up to a power of two and to at least Min.
func FromSizeAlign(size, align uint64) (Class, error) {
	if size > MaxBytes {
		return 0, errors.Wrapf(ErrOutOfRange, "size %#x is larger than the largest block", size)
	}
	if align > MaxBytes {
		return 0, errors.Wrapf(ErrOutOfRange, "alignment %#x is larger than the largest block", align)
	}
	if align != 0 {
		if err := memutils.CheckPow2(align, "alignment"); err != nil {
			return 0, err
		}
	}

	rounded := max(memutils.NextPow2(max(size, align)), MinBytes)
	return FromBytes(rounded)
}
