package memutils

import (
	"math/bits"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Unsigned | ~int
}

// IsPow2 returns true if number is a nonzero power of two
func IsPow2[T Number](number T) bool {
	return number != 0 && number&(number-1) == 0
}

func CheckPow2[T Number](number T, name string) error {
	if !IsPow2(number) {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// CheckAligned returns an error wrapping AlignmentError if value is not a multiple of alignment.
// alignment must be a power of two.
func CheckAligned(value, alignment uint64, name string) error {
	if value&(alignment-1) != 0 {
		return cerrors.Wrapf(AlignmentError, "%s is %#x, which is not aligned to %#x", name, value, alignment)
	}
	return nil
}

func AlignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) & ^(alignment - 1)
}

func AlignDown(value, alignment uint64) uint64 {
	return value & ^(alignment - 1)
}

// Log2 returns the index of the most significant set bit of value. value must be nonzero.
func Log2(value uint64) uint {
	return uint(63 - bits.LeadingZeros64(value))
}

// NextPow2 rounds value up to the nearest power of two. Zero rounds to one.
func NextPow2(value uint64) uint64 {
	if value <= 1 {
		return 1
	}
	if IsPow2(value) {
		return value
	}
	return 1 << (64 - bits.LeadingZeros64(value))
}
