// Package phys models physical addresses on the board and the windows through
// which the kernel dereferences them.
package phys

const (
	// PageShift is equal to log2(PageSize). Shift a physical address right by
	// PageShift to get its page number.
	PageShift = 12

	// PageSize is the size of a translation granule, and of the smallest frame
	// handed out by the frame allocator.
	PageSize uint64 = 1 << PageShift

	// MemorySize is the amount of installed RAM. Physical memory starts at 0,
	// so this is also the first address past the top of RAM.
	MemorySize uint64 = 0x4000_0000

	// PageCount is the number of pages of installed RAM.
	PageCount = MemorySize / PageSize

	// MMIOBase is the first address of the peripheral window. Everything from
	// here to MemorySize belongs to devices, not to the frame allocator.
	MMIOBase uint64 = 0x3F00_0000

	// KernelOffset is added to a physical address to obtain the kernel's
	// high-half alias of it.
	KernelOffset uint64 = 0xFFFF_0000_0000_0000
)
