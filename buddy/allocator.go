// Package buddy implements a power-of-two frame allocator over a range of
// physical memory.
//
// Free blocks of each size class are kept in an intrusive singly linked list
// whose nodes live in the first bytes of the free blocks themselves, so the
// allocator needs no memory beyond its list heads. Allocation pops a block of
// the requested class, splitting a larger block when none is available.
// Freeing a block merges it with its buddy, the other half of the next larger
// aligned block, for as long as that buddy is itself free.
package buddy

import (
	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/internal/utils"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Allocator hands out and reclaims physically contiguous blocks of a fixed set of
// power-of-two sizes. Allocators are created with New.
//
// The allocator trusts its callers: a block must be freed exactly once, with the
// same size it was allocated with, and nothing may reference it afterwards. Only
// when created with CreateTrackAllocations does it check this.
type Allocator struct {
	logger *slog.Logger
	window phys.Window
	mutex  utils.OptionalMutex
	flags  CreateFlags

	start, end phys.PhysAddr
	lists      [blocksize.Count]freeList

	seededBlocks int
	freeBytes    uint64
	liveCount    int
	liveBytes    uint64
	liveByClass  [blocksize.Count]int

	ledger *ledger
}

// heldAllocator is an Allocator whose mutex the caller already holds.
type heldAllocator Allocator

var _ BlockSink = &Allocator{}
var _ BlockSink = &heldAllocator{}
var _ memutils.Validatable = &Allocator{}

func (h *heldAllocator) AddBlock(addr phys.PhysAddr, class blocksize.Class) {
	(*Allocator)(h).addBlock(addr, class)
}

func (h *heldAllocator) Validate() error {
	return (*Allocator)(h).validate()
}

// BuddyOf returns the address of the buddy of the class-sized block at addr: the
// other half of the aligned block of the next larger class that contains it.
// addr must be aligned to class.
func BuddyOf(addr phys.PhysAddr, class blocksize.Class) phys.PhysAddr {
	shift := class.Shift()
	return phys.PhysAddr(((uint64(addr) >> shift) ^ 1) << shift)
}

// Start returns the first address managed by the allocator.
func (a *Allocator) Start() phys.PhysAddr { return a.start }

// End returns the address past the last byte managed by the allocator.
func (a *Allocator) End() phys.PhysAddr { return a.end }

// Size returns the number of bytes managed by the allocator.
func (a *Allocator) Size() uint64 { return a.end.Sub(a.start) }

// Alloc returns the base address of a free block of exactly size bytes, which now
// belongs to the caller. size must be a supported block size; anything else panics.
// Alloc returns false if no block of that size can be found or made by splitting.
func (a *Allocator) Alloc(size uint64) (phys.PhysAddr, bool) {
	class := blocksize.MustFromBytes(size)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.allocLocked(class)
}

// AllocAtLeast returns a block large enough to hold size bytes at the requested
// alignment, along with the class of the block that was handed out. The block must
// be freed with the byte size of that class.
func (a *Allocator) AllocAtLeast(size, align uint64) (phys.PhysAddr, blocksize.Class, bool) {
	class, err := blocksize.FromSizeAlign(size, align)
	if err != nil {
		panic(errors.WithAssertionFailure(err))
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	addr, ok := a.allocLocked(class)
	return addr, class, ok
}

func (a *Allocator) allocLocked(class blocksize.Class) (phys.PhysAddr, bool) {
	addr, ok := a.allocClass(class)
	if !ok {
		a.logger.Debug("Allocator::Alloc FAILED",
			slog.String("Class", class.String()),
			slog.Uint64("FreeBytes", a.freeBytes),
		)
		return 0, false
	}

	a.liveCount++
	a.liveBytes += class.Bytes()
	a.liveByClass[class]++
	if a.ledger != nil {
		a.ledger.record(addr, class)
	}

	memutils.DebugValidate((*heldAllocator)(a))

	return addr, true
}

// allocClass takes a block of the given class off its free list, or failing that
// takes a block of the next class up and splits it, leaving the upper half free.
func (a *Allocator) allocClass(class blocksize.Class) (phys.PhysAddr, bool) {
	if addr, ok := a.pop(class); ok {
		return addr, true
	}

	if class == blocksize.Max {
		return 0, false
	}

	larger, ok := a.allocClass(class.Next())
	if !ok {
		return 0, false
	}

	a.push(larger.Add(class.Bytes()), class)
	return larger, true
}

// Free returns a block obtained from Alloc to the allocator, merging it with its
// buddy for as long as the buddy is free. addr and size must be exactly what Alloc
// was called with and returned, and the block must not have been freed since.
func (a *Allocator) Free(addr phys.PhysAddr, size uint64) {
	class := blocksize.MustFromBytes(size)
	a.checkBlock(addr, class)

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.ledger != nil {
		a.ledger.release(addr, class)
	}
	if a.liveByClass[class] == 0 {
		panic(errors.AssertionFailedf("freeing %s block at %s, but no %s blocks are allocated", class, addr, class))
	}
	a.liveCount--
	a.liveBytes -= class.Bytes()
	a.liveByClass[class]--

	a.freeClass(addr, class)

	memutils.DebugValidate((*heldAllocator)(a))
}

func (a *Allocator) freeClass(addr phys.PhysAddr, class blocksize.Class) {
	freed := class
	for class < blocksize.Max {
		buddy := BuddyOf(addr, class)
		if !a.remove(buddy, class) {
			break
		}

		// Only the lower buddy is aligned to the merged size
		addr = min(addr, buddy)
		class++
	}

	if class != freed {
		a.logger.Debug("Allocator::Free merged",
			slog.String("Address", addr.String()),
			slog.String("From", freed.String()),
			slog.String("To", class.String()),
		)
	}
	a.push(addr, class)
}

// AddBlock hands a block to the allocator without looking for a buddy to merge
// with. It exists for seeding, where every block is already as large as its
// position allows; use Free for blocks that came from Alloc.
func (a *Allocator) AddBlock(addr phys.PhysAddr, class blocksize.Class) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.addBlock(addr, class)
}

func (a *Allocator) addBlock(addr phys.PhysAddr, class blocksize.Class) {
	a.checkBlock(addr, class)
	a.push(addr, class)
	a.seededBlocks++
}

func (a *Allocator) checkBlock(addr phys.PhysAddr, class blocksize.Class) {
	if !class.Valid() {
		panic(errors.AssertionFailedf("invalid size class %d", uint8(class)))
	}
	if !addr.IsAligned(class.Bytes()) {
		panic(errors.AssertionFailedf("block at %s is not aligned to its size %s", addr, class))
	}
	if addr < a.start || uint64(addr)+class.Bytes() > uint64(a.end) {
		panic(errors.AssertionFailedf("%s block at %s is outside the managed range [%s, %s)", class, addr, a.start, a.end))
	}
}

func (a *Allocator) push(addr phys.PhysAddr, class blocksize.Class) {
	a.lists[class].push(a.window, addr, class)
	a.freeBytes += class.Bytes()
}

func (a *Allocator) pop(class blocksize.Class) (phys.PhysAddr, bool) {
	addr, ok := a.lists[class].pop(a.window, class)
	if ok {
		a.freeBytes -= class.Bytes()
	}
	return addr, ok
}

func (a *Allocator) remove(addr phys.PhysAddr, class blocksize.Class) bool {
	if !a.lists[class].remove(a.window, addr) {
		return false
	}
	a.freeBytes -= class.Bytes()
	return true
}

// SumFreeSize returns the number of free bytes.
func (a *Allocator) SumFreeSize() uint64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.freeBytes
}

// AllocationCount returns the number of live allocations.
func (a *Allocator) AllocationCount() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.liveCount
}

// IsEmpty returns true if no allocations are live.
func (a *Allocator) IsEmpty() bool {
	return a.AllocationCount() == 0
}

// FreeBlockCount returns the number of free blocks of the given class.
func (a *Allocator) FreeBlockCount(class blocksize.Class) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.lists[class].count
}

// VisitFreeBlocks calls visit once for every free block, smallest class first. It
// stops at and returns the first error visit returns. visit must not call back
// into the allocator.
func (a *Allocator) VisitFreeBlocks(visit func(addr phys.PhysAddr, class blocksize.Class) error) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.visitFreeBlocks(visit)
}

func (a *Allocator) visitFreeBlocks(visit func(addr phys.PhysAddr, class blocksize.Class) error) error {
	for class := blocksize.Min; class <= blocksize.Max; class++ {
		err := a.lists[class].visit(a.window, func(addr phys.PhysAddr, header freeBlockHeader) error {
			return visit(addr, class)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// AddStatistics sums this allocator's statistics into stats. The managed range
// counts as one block.
func (a *Allocator) AddStatistics(stats *memutils.Statistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.BlockCount++
	stats.BlockBytes += a.Size()
	stats.AllocationCount += a.liveCount
	stats.AllocationBytes += a.liveBytes
}

// AddDetailedStatistics sums this allocator's statistics into stats, counting
// every free block as an unused range.
func (a *Allocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	stats.BlockCount++
	stats.BlockBytes += a.Size()

	for class := blocksize.Min; class <= blocksize.Max; class++ {
		for i := 0; i < a.liveByClass[class]; i++ {
			stats.AddAllocation(class.Bytes())
		}
	}

	_ = a.visitFreeBlocks(func(addr phys.PhysAddr, class blocksize.Class) error {
		stats.AddUnusedRange(class.Bytes())
		return nil
	})
}
