package buddy_test

import (
	"testing"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/buddy"
	mock_buddy "github.com/bareboard/pmem/buddy/mocks"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type tiledBlock struct {
	Addr  phys.PhysAddr
	Class blocksize.Class
}

type collectingSink struct {
	blocks []tiledBlock
}

func (s *collectingSink) AddBlock(addr phys.PhysAddr, class blocksize.Class) {
	s.blocks = append(s.blocks, tiledBlock{addr, class})
}

func TestTileOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mock_buddy.NewMockBlockSink(ctrl)
	gomock.InOrder(
		sink.EXPECT().AddBlock(phys.PhysAddr(0x1000), blocksize.Size4K),
		sink.EXPECT().AddBlock(phys.PhysAddr(0x2000), blocksize.Size8K),
		sink.EXPECT().AddBlock(phys.PhysAddr(0x4000), blocksize.Size4K),
	)

	require.NoError(t, buddy.Tile(0x1000, 0x5000, sink))
}

func TestTileEmptyRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mock_buddy.NewMockBlockSink(ctrl)
	sink.EXPECT().AddBlock(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, buddy.Tile(0x7000, 0x7000, sink))
}

func TestTileRejectsBadRanges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mock_buddy.NewMockBlockSink(ctrl)

	require.Error(t, buddy.Tile(0x2000, 0x1000, sink))

	err := buddy.Tile(0x1001, 0x4000, sink)
	require.True(t, errors.Is(err, memutils.AlignmentError))

	err = buddy.Tile(0x1000, 0x4fff, sink)
	require.True(t, errors.Is(err, memutils.AlignmentError))
}

func TestTileCoversRangeExactly(t *testing.T) {
	testCases := map[string]struct {
		Start, End phys.PhysAddr
		Blocks     int
	}{
		"SinglePage":     {0x1000, 0x2000, 1},
		"SmallRange":     {0x1000, 0x5000, 3},
		"AlignedLarge":   {0x40_0000, 0x80_0000, 1},
		"AllOfMemory":    {0, phys.PhysAddr(phys.MemorySize), 1},
		"BelowMMIO":      {0, phys.PhysAddr(phys.MMIOBase), 6},
		"KernelImageGap": {0x8_5000, phys.PhysAddr(phys.MMIOBase), -1},
		"OddPages":       {0x3000, 0x12_3000, -1},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			sink := &collectingSink{}
			require.NoError(t, buddy.Tile(testCase.Start, testCase.End, sink))
			if testCase.Blocks >= 0 {
				require.Len(t, sink.blocks, testCase.Blocks)
			}

			cursor := testCase.Start
			for _, block := range sink.blocks {
				require.Equal(t, cursor, block.Addr, "gap or overlap before %s", block.Addr)
				require.True(t, block.Addr.IsAligned(block.Class.Bytes()))

				largest, ok := blocksize.LargestFor(block.Addr.TrailingAlignment(), testCase.End.Sub(block.Addr))
				require.True(t, ok)
				require.Equal(t, largest, block.Class, "block at %s is not as large as it could be", block.Addr)

				cursor = block.Addr.Add(block.Class.Bytes())
			}
			require.Equal(t, testCase.End, cursor)
		})
	}
}
