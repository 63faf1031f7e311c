//go:build unix

package main

import "github.com/bareboard/pmem/phys"

// newMmapWindow maps [0, end) so physical addresses can be used as offsets.
func newMmapWindow(end phys.PhysAddr) (*phys.MmapArena, error) {
	return phys.NewMmapArena(0, uint64(end))
}
