package buddy

import (
	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
)

//go:generate mockgen -destination ./mocks/sink.go -package mock_buddy github.com/bareboard/pmem/buddy BlockSink

// BlockSink receives the blocks produced by Tile.
type BlockSink interface {
	AddBlock(addr phys.PhysAddr, class blocksize.Class)
}

// Tile decomposes [start, end) into blocks and passes them to sink from left to
// right. Each block is the largest class that fits in the remaining length and
// that the current position is aligned to, so the blocks cover the range
// exactly, without gaps or overlaps. start and end must be page aligned.
func Tile(start, end phys.PhysAddr, sink BlockSink) error {
	if end < start {
		return errors.Newf("range end %s is below range start %s", end, start)
	}
	if err := memutils.CheckAligned(start.Raw(), phys.PageSize, "range start"); err != nil {
		return err
	}
	if err := memutils.CheckAligned(end.Raw(), phys.PageSize, "range end"); err != nil {
		return err
	}

	for cursor := start; cursor < end; {
		class, ok := blocksize.LargestFor(cursor.TrailingAlignment(), end.Sub(cursor))
		if !ok {
			// Unreachable while both ends are page aligned
			return errors.AssertionFailedf("no block fits at %s below %s", cursor, end)
		}

		sink.AddBlock(cursor, class)
		cursor = cursor.Add(class.Bytes())
	}

	return nil
}
