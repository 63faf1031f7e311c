package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	// Global flags
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "framectl",
	Short: "Exercise the physical frame allocator on a development host",
	Long: `framectl runs the kernel's buddy frame allocator against simulated
physical memory. It can show how a range of memory is split into blocks
when the allocator is seeded, and replay allocation workloads to inspect
the resulting free lists.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log allocator debug records to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseAddr accepts decimal, 0x-prefixed hex and underscore separated literals.
func parseAddr(arg string) (phys.PhysAddr, error) {
	raw, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid address %q", arg)
	}

	return phys.TryFromRaw(raw)
}

var sizeSuffixes = map[string]uint64{
	"K":   1 << 10,
	"KIB": 1 << 10,
	"M":   1 << 20,
	"MIB": 1 << 20,
	"G":   1 << 30,
	"GIB": 1 << 30,
}

// parseSize accepts a byte count with an optional K, M or G suffix.
func parseSize(arg string) (uint64, error) {
	upper := strings.ToUpper(strings.TrimSpace(arg))
	number, multiplier := upper, uint64(1)
	for suffix, value := range sizeSuffixes {
		// Hex digits never end in a suffix letter, and no two suffixes match the same string
		if trimmed, ok := strings.CutSuffix(upper, suffix); ok {
			number, multiplier = trimmed, value
			break
		}
	}

	value, err := strconv.ParseUint(number, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", arg)
	}
	if value > math.MaxUint64/multiplier {
		return 0, errors.Newf("size %q does not fit in 64 bits", arg)
	}

	return value * multiplier, nil
}
