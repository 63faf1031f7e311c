// Package frame holds the kernel's single physical frame allocator. The
// allocator is created once during boot with Init; every other function
// panics if called before that.
package frame

import (
	"io"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/buddy"
	"github.com/bareboard/pmem/internal/utils"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

var (
	ErrNotInitialized     = pkgerrors.New("frame allocator used before Init")
	ErrAlreadyInitialized = pkgerrors.New("frame allocator initialized twice")
)

var (
	// stateLock guards the transition from uninitialized to initialized. The
	// allocator serializes its own operations.
	stateLock = utils.OptionalRWMutex{UseMutex: true}
	allocator *buddy.Allocator
	logger    = discardLogger()
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetLogger replaces the logger handed to the allocator at Init. It has no
// effect once Init has run. A nil logger discards everything.
func SetLogger(l *slog.Logger) {
	stateLock.Lock()
	defer stateLock.Unlock()

	if l == nil {
		l = discardLogger()
	}
	logger = l
}

// Init seeds the allocator with [start, end), which must be reachable through
// window and referenced by nothing else. It panics if called twice or if the
// range cannot be seeded.
func Init(window phys.Window, start, end phys.PhysAddr, options buddy.CreateOptions) {
	stateLock.Lock()
	defer stateLock.Unlock()

	if allocator != nil {
		panic(errors.WithAssertionFailure(ErrAlreadyInitialized))
	}

	a, err := buddy.New(logger, window, start, end, options)
	if err != nil {
		panic(errors.WithAssertionFailure(errors.Wrap(err, "seeding the frame allocator")))
	}
	allocator = a

	logger.Info("frame allocator ready",
		slog.String("Start", start.String()),
		slog.String("End", end.String()),
		slog.Uint64("FreeBytes", a.SumFreeSize()),
	)
}

// Initialized reports whether Init has run.
func Initialized() bool {
	stateLock.RLock()
	defer stateLock.RUnlock()

	return allocator != nil
}

func get() *buddy.Allocator {
	stateLock.RLock()
	defer stateLock.RUnlock()

	if allocator == nil {
		panic(errors.WithAssertionFailure(ErrNotInitialized))
	}
	return allocator
}

// Alloc returns a free block of exactly size bytes, or false if memory is
// exhausted. size must be a power of two between 4KiB and 1GiB.
func Alloc(size uint64) (phys.PhysAddr, bool) {
	return get().Alloc(size)
}

// AllocAtLeast returns a block that holds size bytes at the given alignment,
// and the class it must be freed with.
func AllocAtLeast(size, align uint64) (phys.PhysAddr, blocksize.Class, bool) {
	return get().AllocAtLeast(size, align)
}

// Free returns a block obtained from Alloc.
func Free(addr phys.PhysAddr, size uint64) {
	get().Free(addr, size)
}

// Stats summarizes the allocator's free and allocated memory.
func Stats() memutils.DetailedStatistics {
	var stats memutils.DetailedStatistics
	stats.Clear()
	get().AddDetailedStatistics(&stats)

	return stats
}

// StatsString returns the allocator's statistics as JSON.
func StatsString(detailed bool) string {
	return get().BuildStatsString(detailed)
}
