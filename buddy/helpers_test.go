package buddy_test

import (
	"testing"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/buddy"
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

// newAllocator creates an allocator over [start, end) backed by an arena that
// covers [0, end).
func newAllocator(t *testing.T, start, end phys.PhysAddr, flags buddy.CreateFlags) *buddy.Allocator {
	t.Helper()

	arena, err := phys.NewArena(0, uint64(end))
	require.NoError(t, err)

	allocator, err := buddy.New(nil, arena, start, end, buddy.CreateOptions{Flags: flags})
	require.NoError(t, err)
	require.NoError(t, allocator.Validate())

	return allocator
}

type freeBlock struct {
	Addr  phys.PhysAddr
	Class string
}

func freeBlocks(t *testing.T, allocator *buddy.Allocator) []freeBlock {
	t.Helper()

	var blocks []freeBlock
	err := allocator.VisitFreeBlocks(func(addr phys.PhysAddr, class blocksize.Class) error {
		blocks = append(blocks, freeBlock{Addr: addr, Class: class.String()})
		return nil
	})
	require.NoError(t, err)

	return blocks
}
