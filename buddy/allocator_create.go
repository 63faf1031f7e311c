package buddy

import (
	"io"
	"math/bits"
	"strings"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/internal/utils"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that the allocator will not be synchronized internally.
	// The consumer must guarantee it is used from only one thread at a time or is synchronized by
	// some other mechanism, such as the kernel running on a single core with interrupts masked.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateTrackAllocations keeps a side table of every live allocation, indexed by page number.
	// Freeing a block that is not allocated, or freeing it with the wrong size, panics instead of
	// silently corrupting the free lists. This costs memory proportional to the number of live
	// allocations and is intended for debug builds and tests.
	CreateTrackAllocations
)

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
	CreateTrackAllocations:       "CreateTrackAllocations",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for remaining := uint32(f); remaining != 0; {
		bit := CreateFlags(1 << bits.TrailingZeros32(remaining))
		remaining &^= uint32(bit)

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
}

// New creates an allocator that owns [start, end) and seeds its free lists with the
// range. There is no other way to obtain a usable Allocator.
//
// logger - Receives debug records about seeding and exhaustion. May be nil.
//
// window - The mapping used to write free-block headers into the managed memory. It must
// cover the whole range.
//
// start, end - A page aligned, half-open range of memory to which no other references exist.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, window phys.Window, start, end phys.PhysAddr, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if window == nil {
		return nil, errors.New("a memory window is required")
	}
	if end < start {
		return nil, errors.Newf("range end %s is below range start %s", end, start)
	}
	if !window.Contains(start, end.Sub(start)) {
		return nil, errors.Newf("range [%s, %s) is not reachable through the provided window", start, end)
	}

	allocator := &Allocator{
		logger: logger,
		window: window,
		start:  start,
		end:    end,
		mutex: utils.OptionalMutex{
			UseMutex: options.Flags&CreateExternallySynchronized == 0,
		},
		flags: options.Flags,
	}
	for i := range allocator.lists {
		allocator.lists[i].init()
	}
	if options.Flags&CreateTrackAllocations != 0 {
		allocator.ledger = &ledger{
			live: swiss.NewMap[uint64, blocksize.Class](64),
		}
	}

	allocator.mutex.Lock()
	defer allocator.mutex.Unlock()

	err := Tile(start, end, (*heldAllocator)(allocator))
	if err != nil {
		return nil, err
	}

	logger.Debug("Allocator::Seed",
		slog.String("Start", start.String()),
		slog.String("End", end.String()),
		slog.Int("Blocks", allocator.seededBlocks),
		slog.String("Flags", options.Flags.String()),
		slog.Bool("DebugValidation", memutils.DebugEnabled),
	)

	memutils.DebugValidate((*heldAllocator)(allocator))

	return allocator, nil
}
