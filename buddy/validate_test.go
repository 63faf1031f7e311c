package buddy_test

import (
	"testing"

	"github.com/bareboard/pmem/buddy"
	"github.com/bareboard/pmem/phys"
	"github.com/stretchr/testify/require"
)

func TestValidateDetectsClobberedHeader(t *testing.T) {
	arena, err := phys.NewArena(0, 0x10000)
	require.NoError(t, err)

	allocator, err := buddy.New(nil, arena, 0, 0x10000, buddy.CreateOptions{})
	require.NoError(t, err)

	addr, ok := allocator.Alloc(0x1000)
	require.True(t, ok)

	// The owner of a block may scribble over all of it
	phys.Write[uint64](arena, addr, 0xdeadbeef)
	phys.Write[uint64](arena, addr+8, 0xdeadbeef)
	require.NoError(t, allocator.Validate())

	// The upper 4KiB half of the first split sits at 0x1000. Overwrite everything
	// after its link field.
	phys.Write[uint64](arena, 0x1008, 0)
	require.Error(t, allocator.Validate())
}

func TestValidateWithLedger(t *testing.T) {
	allocator := newAllocator(t, 0x3000, 0x2_3000, buddy.CreateTrackAllocations)

	var addrs []phys.PhysAddr
	for _, size := range []uint64{0x1000, 0x4000, 0x2000, 0x1000, 0x8000} {
		addr, ok := allocator.Alloc(size)
		require.True(t, ok)
		addrs = append(addrs, addr)
		require.NoError(t, allocator.Validate())
	}

	allocator.Free(addrs[1], 0x4000)
	allocator.Free(addrs[3], 0x1000)
	require.NoError(t, allocator.Validate())
}
