package buddy

import (
	"cmp"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

type blockRange struct {
	addr      phys.PhysAddr
	class     blocksize.Class
	allocated bool
}

func (r blockRange) end() uint64 {
	return uint64(r.addr) + r.class.Bytes()
}

// Validate performs internal consistency checks on the free lists. It walks every
// free block, so it is expensive. When the allocator is functioning correctly and
// its callers keep their obligations, it never returns an error.
func (a *Allocator) Validate() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.validate()
}

func (a *Allocator) validate() error {
	if a.freeBytes > a.Size() {
		return errors.Newf("free size %#x is larger than the managed size %#x", a.freeBytes, a.Size())
	}

	seen := swiss.NewMap[phys.PhysAddr, blocksize.Class](uint32(a.seededBlocks + 16))
	var ranges []blockRange
	var freeBytes uint64

	for class := blocksize.Min; class <= blocksize.Max; class++ {
		count := 0
		err := a.lists[class].visit(a.window, func(addr phys.PhysAddr, header freeBlockHeader) error {
			if header.magic != freeBlockMagic {
				return errors.Newf("block at %s is in the %s free list but has no free block marker", addr, class)
			}
			if header.class != class {
				return errors.Newf("block at %s is in the %s free list but its header says %s", addr, class, header.class)
			}
			if !addr.IsAligned(class.Bytes()) {
				return errors.Newf("%s block at %s is not aligned to its size", class, addr)
			}
			if addr < a.start || uint64(addr)+class.Bytes() > uint64(a.end) {
				return errors.Newf("%s block at %s is outside the managed range [%s, %s)", class, addr, a.start, a.end)
			}
			if other, ok := seen.Get(addr); ok {
				return errors.Newf("block at %s appears in both the %s and the %s free lists", addr, other, class)
			}

			seen.Put(addr, class)
			ranges = append(ranges, blockRange{addr: addr, class: class})
			freeBytes += class.Bytes()
			count++
			return nil
		})
		if err != nil {
			return err
		}

		if count != a.lists[class].count {
			return errors.Newf("the %s free list claims %d blocks but holds %d", class, a.lists[class].count, count)
		}
	}

	if freeBytes != a.freeBytes {
		return errors.Newf("the free size of the allocator is %#x, but the free blocks only added up to %#x", a.freeBytes, freeBytes)
	}

	liveBytes := uint64(0)
	liveCount := 0
	for class := blocksize.Min; class <= blocksize.Max; class++ {
		liveCount += a.liveByClass[class]
		liveBytes += uint64(a.liveByClass[class]) * class.Bytes()
	}
	if liveCount != a.liveCount || liveBytes != a.liveBytes {
		return errors.Newf("%d allocations totalling %#x bytes are live, but the per-class counts add up to %d totalling %#x",
			a.liveCount, a.liveBytes, liveCount, liveBytes)
	}
	if a.freeBytes+a.liveBytes > a.Size() {
		return errors.Newf("free bytes %#x and allocated bytes %#x exceed the managed size %#x", a.freeBytes, a.liveBytes, a.Size())
	}

	if a.ledger != nil {
		if a.ledger.count() != a.liveCount {
			return errors.Newf("the ledger holds %d allocations but %d are live", a.ledger.count(), a.liveCount)
		}
		a.ledger.visit(func(addr phys.PhysAddr, class blocksize.Class) {
			ranges = append(ranges, blockRange{addr: addr, class: class, allocated: true})
		})
		if a.freeBytes+a.liveBytes != a.Size() {
			return errors.Newf("free bytes %#x and allocated bytes %#x do not add up to the managed size %#x", a.freeBytes, a.liveBytes, a.Size())
		}
	}

	slices.SortFunc(ranges, func(left, right blockRange) int {
		return cmp.Compare(left.addr, right.addr)
	})
	for i := 1; i < len(ranges); i++ {
		prev, next := ranges[i-1], ranges[i]
		if prev.end() > uint64(next.addr) {
			return errors.Newf("%s block at %s (allocated: %t) overlaps %s block at %s (allocated: %t)",
				prev.class, prev.addr, prev.allocated, next.class, next.addr, next.allocated)
		}
	}

	return nil
}
