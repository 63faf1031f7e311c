package buddy

import (
	"math"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
)

const (
	// freeBlockMagic marks the first bytes of a block as a free-list node
	freeBlockMagic uint32 = 0x66726565
	// noBlock terminates a free list
	noBlock uint64 = math.MaxUint64
)

// freeBlockHeader is written into the first bytes of every free block. The
// block is both the payload and the only record of its own size, so nothing
// outside this file may touch it.
type freeBlockHeader struct {
	next  uint64
	class blocksize.Class
	magic uint32
}

// freeBlock is a handle on a block that currently sits in a free list.
// Holding one means owning the block's memory.
type freeBlock struct {
	addr phys.PhysAddr
}

func (b freeBlock) header(w phys.Window) *freeBlockHeader {
	return phys.Ptr[freeBlockHeader](w, b.addr)
}

// freeList is a singly linked chain of free blocks of one size class.
type freeList struct {
	head  uint64
	count int
}

func (l *freeList) init() {
	l.head = noBlock
	l.count = 0
}

func (l *freeList) empty() bool {
	return l.head == noBlock
}

func (l *freeList) push(w phys.Window, addr phys.PhysAddr, class blocksize.Class) {
	*freeBlock{addr}.header(w) = freeBlockHeader{
		next:  l.head,
		class: class,
		magic: freeBlockMagic,
	}
	l.head = uint64(addr)
	l.count++
}

func (l *freeList) pop(w phys.Window, class blocksize.Class) (phys.PhysAddr, bool) {
	if l.empty() {
		return 0, false
	}

	block := freeBlock{phys.PhysAddr(l.head)}
	header := block.header(w)
	if header.magic != freeBlockMagic || header.class != class {
		panic(errors.AssertionFailedf("block at %s is at the head of the %s free list but its header is corrupt", block.addr, class))
	}

	l.head = header.next
	l.count--
	header.magic = 0

	return block.addr, true
}

// remove unlinks the block at addr if it is in the list. Only nodes already
// in the list are dereferenced, never addr itself.
func (l *freeList) remove(w phys.Window, addr phys.PhysAddr) bool {
	link := &l.head
	for *link != noBlock {
		header := freeBlock{phys.PhysAddr(*link)}.header(w)
		if *link == uint64(addr) {
			*link = header.next
			l.count--
			header.magic = 0
			return true
		}
		link = &header.next
	}

	return false
}

func (l *freeList) visit(w phys.Window, fn func(addr phys.PhysAddr, header freeBlockHeader) error) error {
	for next := l.head; next != noBlock; {
		addr := phys.PhysAddr(next)
		header := *freeBlock{addr}.header(w)
		if err := fn(addr, header); err != nil {
			return err
		}
		next = header.next
	}

	return nil
}
