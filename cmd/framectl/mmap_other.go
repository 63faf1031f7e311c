//go:build !unix

package main

import (
	"github.com/bareboard/pmem/phys"
	"github.com/cockroachdb/errors"
)

type unmappedWindow struct {
	phys.Window
}

func (unmappedWindow) Close() error { return nil }

func newMmapWindow(end phys.PhysAddr) (*unmappedWindow, error) {
	return nil, errors.New("--mmap is only supported on unix")
}
