package phys_test

import (
	"testing"

	"github.com/bareboard/pmem/phys"
	"github.com/stretchr/testify/require"
)

type header struct {
	Next  uint64
	Class uint8
	Magic uint32
}

func testWindowRoundTrip(t *testing.T, w phys.Window, addr phys.PhysAddr) {
	t.Helper()

	phys.Write(w, addr, header{Next: 0x2000, Class: 3, Magic: 0xfeedface})
	require.Equal(t, header{Next: 0x2000, Class: 3, Magic: 0xfeedface}, phys.Read[header](w, addr))

	phys.Ptr[header](w, addr).Class = 7
	require.Equal(t, uint8(7), phys.Read[header](w, addr).Class)
}

func TestArena(t *testing.T) {
	arena, err := phys.NewArena(0x1000, 0x4000)
	require.NoError(t, err)

	require.True(t, arena.Contains(0x1000, 0x4000))
	require.False(t, arena.Contains(0x0, 0x1000))
	require.False(t, arena.Contains(0x4000, 0x2000))

	testWindowRoundTrip(t, arena, 0x3000)

	phys.Write[uint64](arena, 0x4ff8, 0xdeadbeef)
	require.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, arena.Bytes(0x4ff8, 4))

	requireAssertion(t, func() {
		phys.Read[uint64](arena, 0x4ffc)
	})
}

func TestArenaRejectsBadRanges(t *testing.T) {
	_, err := phys.NewArena(0x1800, 0x1000)
	require.Error(t, err)

	_, err = phys.NewArena(0x1000, phys.MemorySize)
	require.Error(t, err)
}

func TestSparseArena(t *testing.T) {
	arena := phys.NewSparseArena(0, phys.FromRaw(phys.MemorySize))
	require.Equal(t, 0, arena.ResidentPages())

	testWindowRoundTrip(t, arena, 0x3000_0000)
	testWindowRoundTrip(t, arena, 0x1000)
	require.Equal(t, 2, arena.ResidentPages())

	require.Equal(t, uint64(0), phys.Read[uint64](arena, 0x2000))
	require.Equal(t, 3, arena.ResidentPages())

	requireAssertion(t, func() {
		phys.Read[uint64](arena, 0x1ffc)
	})
}
