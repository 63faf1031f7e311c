package buddy

import (
	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// ledger records the class of every live allocation, keyed by the page number of
// the block's first page.
type ledger struct {
	live *swiss.Map[uint64, blocksize.Class]
}

func (l *ledger) record(addr phys.PhysAddr, class blocksize.Class) {
	page := addr.PageNumber()
	if existing, ok := l.live.Get(page); ok {
		panic(errors.AssertionFailedf("handed out %s block at %s, which is already allocated as a %s block", class, addr, existing))
	}
	l.live.Put(page, class)
}

func (l *ledger) release(addr phys.PhysAddr, class blocksize.Class) {
	page := addr.PageNumber()
	existing, ok := l.live.Get(page)
	if !ok {
		panic(errors.AssertionFailedf("freeing %s block at %s, which is not allocated", class, addr))
	}
	if existing != class {
		panic(errors.AssertionFailedf("freeing block at %s as %s, but it was allocated as %s", addr, class, existing))
	}
	l.live.Delete(page)
}

func (l *ledger) count() int {
	return l.live.Count()
}

func (l *ledger) visit(fn func(addr phys.PhysAddr, class blocksize.Class)) {
	l.live.Iter(func(page uint64, class blocksize.Class) bool {
		fn(phys.PhysAddr(page<<phys.PageShift), class)
		return false
	})
}
