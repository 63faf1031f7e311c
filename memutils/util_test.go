package memutils_test

import (
	"testing"

	"github.com/bareboard/pmem/memutils"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(uint64(4096), "size"))
	require.NoError(t, memutils.CheckPow2(1, "size"))

	err := memutils.CheckPow2(uint64(0x3000), "size")
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	require.Contains(t, err.Error(), "size is 12288")

	require.Error(t, memutils.CheckPow2(0, "size"))
}

func TestCheckAligned(t *testing.T) {
	require.NoError(t, memutils.CheckAligned(0x2000, 0x1000, "addr"))

	err := memutils.CheckAligned(0x2800, 0x1000, "addr")
	require.True(t, errors.Is(err, memutils.AlignmentError))
}

func TestAlign(t *testing.T) {
	require.Equal(t, uint64(0x2000), memutils.AlignUp(0x1001, 0x1000))
	require.Equal(t, uint64(0x1000), memutils.AlignUp(0x1000, 0x1000))
	require.Equal(t, uint64(0x1000), memutils.AlignDown(0x1fff, 0x1000))
}

func TestLog2AndNextPow2(t *testing.T) {
	require.Equal(t, uint(12), memutils.Log2(0x1000))
	require.Equal(t, uint(12), memutils.Log2(0x1fff))

	require.Equal(t, uint64(8), memutils.NextPow2(7))
	require.Equal(t, uint64(8), memutils.NextPow2(8))
	require.Equal(t, uint64(16), memutils.NextPow2(9))
	require.Equal(t, uint64(1), memutils.NextPow2(0))
}
