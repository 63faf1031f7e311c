package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/buddy"
	"github.com/bareboard/pmem/memutils"
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	simStart    string
	simEnd      string
	simSizes    []string
	simOps      int
	simSeed     int64
	simFreeAll  bool
	simTrack    bool
	simDetailed bool
	simMmap     bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().StringVar(&simStart, "start", "0x80000", "First address handed to the allocator")
	cmd.Flags().StringVar(&simEnd, "end", fmt.Sprintf("%#x", phys.MMIOBase), "Address past the last byte handed to the allocator")
	cmd.Flags().StringSliceVar(&simSizes, "alloc", nil, "Block sizes to allocate in order, e.g. 4K,2M,64K")
	cmd.Flags().IntVar(&simOps, "random", 0, "Number of random allocations and frees to perform after --alloc")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Seed for --random")
	cmd.Flags().BoolVar(&simFreeAll, "free-all", false, "Free every live block before printing")
	cmd.Flags().BoolVar(&simTrack, "track", true, "Track live allocations to catch invalid frees")
	cmd.Flags().BoolVar(&simDetailed, "detailed", false, "List every free block")
	cmd.Flags().BoolVar(&simMmap, "mmap", false, "Back the simulated memory with an anonymous mapping instead of a sparse page table")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an allocation workload",
		Long: `The simulate command seeds an allocator with a range of simulated
physical memory, performs the requested allocations and frees, checks
the allocator's consistency and prints its statistics.

Example:
  framectl simulate --alloc 4K,4K,2M
  framectl simulate --start 0 --end 0x40000000 --random 10000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.OutOrStdout())
		},
	}
	return cmd
}

type liveBlock struct {
	addr phys.PhysAddr
	size uint64
}

func newSimWindow(start, end phys.PhysAddr) (phys.Window, func() error, error) {
	if !simMmap {
		return phys.NewSparseArena(start, end), func() error { return nil }, nil
	}

	arena, err := newMmapWindow(end)
	if err != nil {
		return nil, nil, err
	}
	return arena, arena.Close, nil
}

func runSimulate(out io.Writer) error {
	start, err := parseAddr(simStart)
	if err != nil {
		return err
	}
	end, err := parseAddr(simEnd)
	if err != nil {
		return err
	}

	window, closeWindow, err := newSimWindow(start, end)
	if err != nil {
		return err
	}
	defer closeWindow()

	var options buddy.CreateOptions
	if simTrack {
		options.Flags |= buddy.CreateTrackAllocations
	}

	logger := newLogger()
	allocator, err := buddy.New(logger, window, start, end, options)
	if err != nil {
		return err
	}

	var live []liveBlock
	failed := 0
	for _, arg := range simSizes {
		size, err := parseSize(arg)
		if err != nil {
			return err
		}
		if _, err := blocksize.FromBytes(size); err != nil {
			return errors.Wrapf(err, "cannot allocate %q", arg)
		}

		addr, ok := allocator.Alloc(size)
		if !ok {
			failed++
			continue
		}
		live = append(live, liveBlock{addr, size})
	}

	random := rand.New(rand.NewSource(simSeed))
	for i := 0; i < simOps; i++ {
		if len(live) > 0 && random.Intn(2) == 0 {
			index := random.Intn(len(live))
			allocator.Free(live[index].addr, live[index].size)
			live[index] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		// Favour small blocks the way page-table and stack allocations do
		class := blocksize.Class(random.Intn(int(blocksize.Size2M)+1) * random.Intn(2))
		addr, ok := allocator.Alloc(class.Bytes())
		if !ok {
			failed++
			continue
		}
		live = append(live, liveBlock{addr, class.Bytes()})
	}

	if simFreeAll {
		for _, block := range live {
			allocator.Free(block.addr, block.size)
		}
		live = nil
	}

	if err := allocator.Validate(); err != nil {
		return errors.Wrap(err, "allocator is inconsistent")
	}

	if verbose {
		allocator.DebugLogFreeBlocks(logger)
	}

	if jsonOut {
		_, err := fmt.Fprintln(out, allocator.BuildStatsString(simDetailed))
		return err
	}

	var stats memutils.DetailedStatistics
	stats.Clear()
	allocator.AddDetailedStatistics(&stats)

	fmt.Fprintf(out, "Range:        [%s, %s)\n", start, end)
	fmt.Fprintf(out, "Allocations:  %d live, %d failed\n", len(live), failed)
	fmt.Fprintf(out, "Allocated:    %#x bytes\n", stats.AllocationBytes)
	fmt.Fprintf(out, "Free:         %#x bytes in %d blocks\n", stats.FreeBytes(), stats.UnusedRangeCount)
	if stats.UnusedRangeCount > 0 {
		fmt.Fprintf(out, "Largest free: %s\n", blocksize.MustFromBytes(stats.UnusedRangeSizeMax))
	}
	if simDetailed {
		return allocator.VisitFreeBlocks(func(addr phys.PhysAddr, class blocksize.Class) error {
			_, err := fmt.Fprintf(out, "  %s  %s\n", addr, class)
			return err
		})
	}

	return nil
}
