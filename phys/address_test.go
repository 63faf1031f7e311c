package phys_test

import (
	"testing"

	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func requireAssertion(t *testing.T, fn func()) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "expected an error value, got %T", r)
		require.True(t, errors.HasAssertionFailure(err), "expected an assertion failure, got %v", err)
	}()

	fn()
}

func TestFromRaw(t *testing.T) {
	require.Equal(t, phys.PhysAddr(0), phys.FromRaw(0))
	require.Equal(t, phys.PhysAddr(phys.MemorySize), phys.FromRaw(phys.MemorySize))

	_, err := phys.TryFromRaw(phys.MemorySize + 1)
	require.True(t, errors.Is(err, phys.ErrOutOfRange))

	requireAssertion(t, func() {
		phys.FromRaw(phys.MemorySize + phys.PageSize)
	})
}

func TestAddressArithmetic(t *testing.T) {
	a := phys.FromRaw(0x3000)

	require.Equal(t, phys.PhysAddr(0x4000), a.Add(0x1000))
	require.Equal(t, uint64(0x2000), a.Sub(0x1000))
	require.True(t, a.IsAligned(0x1000))
	require.False(t, a.IsAligned(0x2000))
	require.Equal(t, phys.PhysAddr(0x2000), a.AlignDown(0x2000))
	require.Equal(t, phys.PhysAddr(0x4000), a.AlignUp(0x2000))
	require.Equal(t, uint64(3), a.PageNumber())

	requireAssertion(t, func() {
		phys.FromRaw(0x1000).Sub(a)
	})
	requireAssertion(t, func() {
		phys.FromRaw(phys.MemorySize).Add(1)
	})
}

func TestTrailingAlignment(t *testing.T) {
	require.Equal(t, uint64(0x1000), phys.FromRaw(0x1000).TrailingAlignment())
	require.Equal(t, uint64(0x2000), phys.FromRaw(0x6000).TrailingAlignment())
	require.Equal(t, uint64(1)<<63, phys.FromRaw(0).TrailingAlignment())
}

func TestKernelAlias(t *testing.T) {
	a := phys.FromRaw(0x8_0000)
	k := a.Kernel()

	require.Equal(t, phys.KernelAddr(0xFFFF_0000_0008_0000), k)
	require.Equal(t, a, k.Phys())

	requireAssertion(t, func() {
		phys.KernelAddr(0x8_0000).Phys()
	})
	requireAssertion(t, func() {
		phys.KernelAddr(phys.KernelOffset + phys.MemorySize + phys.PageSize).Phys()
	})
}
