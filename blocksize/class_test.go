package blocksize_test

import (
	"testing"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/memutils"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestClassBytes(t *testing.T) {
	require.Equal(t, 19, blocksize.Count)
	require.Equal(t, uint64(0x1000), blocksize.Size4K.Bytes())
	require.Equal(t, uint64(0x20_0000), blocksize.Size2M.Bytes())
	require.Equal(t, uint64(0x4000_0000), blocksize.Max.Bytes())

	for c := blocksize.Min; c <= blocksize.Max; c++ {
		require.Equal(t, blocksize.MinBytes<<c, c.Bytes())
		require.Equal(t, c.Shift(), blocksize.Log2(c.Bytes()))

		back, err := blocksize.FromBytes(c.Bytes())
		require.NoError(t, err)
		require.Equal(t, c, back)
	}
}

func TestFromBytesRejects(t *testing.T) {
	_, err := blocksize.FromBytes(0x3000)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	_, err = blocksize.FromBytes(0)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))

	_, err = blocksize.FromBytes(0x800)
	require.True(t, errors.Is(err, blocksize.ErrOutOfRange))

	_, err = blocksize.FromBytes(0x8000_0000)
	require.True(t, errors.Is(err, blocksize.ErrOutOfRange))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.True(t, errors.HasAssertionFailure(r.(error)))
	}()
	blocksize.MustFromBytes(0x1800)
}

func TestLargestFor(t *testing.T) {
	testCases := map[string]struct {
		Alignment uint64
		Remaining uint64
		Expected  blocksize.Class
		Fits      bool
	}{
		"AlignmentBound":  {0x1000, 0x10_0000, blocksize.Size4K, true},
		"LengthBound":     {0x10_0000, 0x3000, blocksize.Size8K, true},
		"Equal":           {0x4000, 0x4000, blocksize.Size16K, true},
		"CappedAtMax":     {1 << 63, 0x8000_0000, blocksize.Max, true},
		"TooShort":        {0x10_0000, 0x800, 0, false},
		"TooLittleAlign":  {0x800, 0x10_0000, 0, false},
		"NonPow2Distance": {0x8000, 0x7000, blocksize.Size16K, true},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			c, ok := blocksize.LargestFor(testCase.Alignment, testCase.Remaining)
			require.Equal(t, testCase.Fits, ok)
			require.Equal(t, testCase.Expected, c)
		})
	}
}

func TestFromSizeAlign(t *testing.T) {
	c, err := blocksize.FromSizeAlign(1, 0)
	require.NoError(t, err)
	require.Equal(t, blocksize.Size4K, c)

	c, err = blocksize.FromSizeAlign(0x5000, 0x1000)
	require.NoError(t, err)
	require.Equal(t, blocksize.Size32K, c)

	c, err = blocksize.FromSizeAlign(0x1000, 0x20_0000)
	require.NoError(t, err)
	require.Equal(t, blocksize.Size2M, c)

	_, err = blocksize.FromSizeAlign(blocksize.MaxBytes+1, 0)
	require.True(t, errors.Is(err, blocksize.ErrOutOfRange))

	_, err = blocksize.FromSizeAlign(0x1000, 0x3000)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
}

func TestClassNavigation(t *testing.T) {
	require.Equal(t, blocksize.Size8K, blocksize.Size4K.Next())
	require.Equal(t, blocksize.Size512M, blocksize.Max.Prev())
	require.Equal(t, "4KiB", blocksize.Size4K.String())
	require.Equal(t, "2MiB", blocksize.Size2M.String())
	require.Equal(t, "1GiB", blocksize.Size1G.String())
	require.Equal(t, "Class(19)", blocksize.Class(19).String())
	require.False(t, blocksize.Class(19).Valid())

	require.Panics(t, func() { blocksize.Max.Next() })
	require.Panics(t, func() { blocksize.Min.Prev() })
}
